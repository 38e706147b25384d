package config

import (
	"errors"
	"fmt"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the configuration is usable for its environment.
// All problems are reported together.
func ValidateConfig(cfg *Config) error {
	var errs []error
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if cfg.ServerPort == "" {
		add("server_port", "is required")
	}
	if cfg.JWTSecret == "" {
		add("jwt_secret", "is required")
	} else if cfg.Env.IsProduction() && len(cfg.JWTSecret) < 32 {
		add("jwt_secret", "must be at least 32 characters in production")
	}
	if cfg.TokenTTL <= 0 {
		add("token_ttl", "must be positive")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("db_host", "is required for postgres")
		}
		if cfg.DBName == "" {
			add("db_name", "is required for postgres")
		}
		if cfg.DBUser == "" {
			add("db_user", "is required for postgres")
		}
		if cfg.Env.IsProduction() && cfg.DBPassword == "" {
			add("db_password", "is required in production")
		}
	case "sqlite":
		if cfg.Env.IsProduction() {
			add("db_driver", "sqlite is not allowed in production")
		}
		if cfg.SQLitePath == "" {
			add("sqlite_path", "is required for sqlite")
		}
	default:
		add("db_driver", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	switch cfg.StorageBackend {
	case "s3":
		if cfg.S3Bucket == "" {
			add("s3_bucket_name", "is required for s3 storage")
		}
	case "local":
		if cfg.MediaRoot == "" {
			add("media_root", "is required for local storage")
		}
	default:
		add("storage_backend", fmt.Sprintf("unsupported backend %q", cfg.StorageBackend))
	}

	if cfg.RecipeCreateLimit <= 0 {
		add("recipe_create_limit", "must be positive")
	}
	if cfg.RecipeCreateWindow <= 0 {
		add("recipe_create_window", "must be positive")
	}

	return errors.Join(errs...)
}
