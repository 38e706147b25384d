package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/logger"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "migrations", "Directory holding the SQL migrations")
	flag.Parse()

	zl, err := logger.New(config.GetEnvironment(), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close(zl)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		zl.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if *rollback {
		name, err := database.RollbackLast(ctx, db, *dir, zl)
		if err != nil {
			zl.Fatal("rollback failed", zap.Error(err))
		}
		zl.Info("rolled back migration", zap.String("name", name))
		return
	}

	applied, err := database.ApplyMigrations(ctx, db, *dir, zl)
	if err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}
	zl.Info("migrations applied", zap.Int("count", applied))
}
