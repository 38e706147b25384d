package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/logger"
	"github.com/foodgram/backend/internal/models"
)

func main() {
	dataDir := flag.String("data", "data", "Directory holding tags.json and ingredients.json")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close(zl)

	db, err := database.New(cfg, zl)
	if err != nil {
		zl.Fatal("failed to open database", zap.Error(err))
	}
	if err := database.RunMigrations(db, cfg.MigrationsDir, zl); err != nil {
		zl.Fatal("failed to migrate database", zap.Error(err))
	}

	var tags []models.Tag
	if err := database.LoadJSON(filepath.Join(*dataDir, "tags.json"), &tags); err != nil {
		zl.Fatal("failed to load tags", zap.Error(err))
	}
	var ingredients []models.Ingredient
	if err := database.LoadJSON(filepath.Join(*dataDir, "ingredients.json"), &ingredients); err != nil {
		zl.Fatal("failed to load ingredients", zap.Error(err))
	}

	if _, _, err := database.SeedCatalog(context.Background(), db, tags, ingredients, zl); err != nil {
		zl.Fatal("failed to seed catalog", zap.Error(err))
	}
}
