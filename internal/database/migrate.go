package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

const rollbackSuffix = "_rollback.sql"

// Migration is a forward SQL migration file named VERSION_NAME.sql.
type Migration struct {
	Version string
	Name    string
	Path    string
}

// RollbackPath returns the path of the matching VERSION_NAME_rollback.sql file.
func (m Migration) RollbackPath() string {
	return strings.TrimSuffix(m.Path, ".sql") + rollbackSuffix
}

// LoadMigrations lists the forward migrations in dir sorted by file name.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" || strings.HasSuffix(name, rollbackSuffix) {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s does not match VERSION_NAME.sql", name)
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    name,
			Path:    filepath.Join(dir, name),
		})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})
	return migrations, nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// ApplyMigrations applies every pending postgres migration in dir, each in its
// own transaction, and returns how many were applied.
func ApplyMigrations(ctx context.Context, db *sql.DB, dir string, log *zap.Logger) (int, error) {
	migrations, err := LoadMigrations(dir)
	if err != nil {
		return 0, err
	}
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		var exists bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			log.Debug("skipping migration", zap.String("name", m.Name))
			continue
		}

		content, err := os.ReadFile(m.Path)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", m.Name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to apply migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %s: %w", m.Name, err)
		}

		applied++
		log.Info("applied migration", zap.String("name", m.Name))
	}
	return applied, nil
}

// RollbackLast reverts the most recently applied migration using its
// rollback file and returns its name.
func RollbackLast(ctx context.Context, db *sql.DB, dir string, log *zap.Logger) (string, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return "", err
	}

	var version, name string
	err := db.QueryRowContext(ctx,
		"SELECT version, name FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1").
		Scan(&version, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("no migrations to rollback")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	m := Migration{Version: version, Name: name, Path: filepath.Join(dir, name)}
	content, err := os.ReadFile(m.RollbackPath())
	if err != nil {
		return "", fmt.Errorf("failed to read rollback file: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("failed to execute rollback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit rollback: %w", err)
	}

	log.Info("rolled back migration", zap.String("name", name))
	return name, nil
}

// RunMigrations brings the schema up to date. sqlite databases, used for
// local development and tests, are migrated from the gorm models instead of
// the postgres SQL files.
func RunMigrations(db *gorm.DB, dir string, log *zap.Logger) error {
	if db.Dialector.Name() == "sqlite" {
		log.Info("using gorm auto-migration for sqlite")
		return db.AutoMigrate(models.All()...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	_, err = ApplyMigrations(context.Background(), sqlDB, dir, log)
	return err
}
