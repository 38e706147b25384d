package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env Environment `mapstructure:"-"`

	// Server configuration
	ServerHost string `mapstructure:"server_host"`
	ServerPort string `mapstructure:"server_port"`
	// BaseURL is the public origin used to build short links
	BaseURL     string   `mapstructure:"public_base_url"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	LogLevel    string   `mapstructure:"log_level"`

	// Database configuration
	DBDriver      string `mapstructure:"db_driver"`
	DBHost        string `mapstructure:"db_host"`
	DBPort        string `mapstructure:"db_port"`
	DBUser        string `mapstructure:"db_user"`
	DBPassword    string `mapstructure:"db_password"`
	DBName        string `mapstructure:"db_name"`
	DBSSLMode     string `mapstructure:"db_ssl_mode"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
	MigrationsDir string `mapstructure:"migrations_dir"`

	// Redis configuration; with neither a URL nor a host the rate limiter
	// falls back to in-process state
	RedisURL      string `mapstructure:"redis_url"`
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// JWT configuration
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// Image storage configuration
	StorageBackend string `mapstructure:"storage_backend"`
	MediaRoot      string `mapstructure:"media_root"`
	MediaURL       string `mapstructure:"media_url"`
	S3Bucket       string `mapstructure:"s3_bucket_name"`
	S3Endpoint     string `mapstructure:"s3_endpoint"`
	AWSRegion      string `mapstructure:"aws_region"`

	// Recipe creation rate limit
	RecipeCreateLimit  int           `mapstructure:"recipe_create_limit"`
	RecipeCreateWindow time.Duration `mapstructure:"recipe_create_window"`
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// URL returns the postgres connection URL used by the migration tool.
func (c *Config) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// RedisEnabled reports whether a Redis server is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8080")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("log_level", "info")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "foodgram")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "foodgram")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("sqlite_path", "foodgram.db")
	v.SetDefault("auto_migrate", true)
	v.SetDefault("migrations_dir", "migrations")

	v.SetDefault("redis_url", "")
	v.SetDefault("redis_host", "")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)

	v.SetDefault("storage_backend", "local")
	v.SetDefault("media_root", "media")
	v.SetDefault("media_url", "http://localhost:8080/media")
	v.SetDefault("s3_bucket_name", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("aws_region", "us-east-1")

	v.SetDefault("recipe_create_limit", 30)
	v.SetDefault("recipe_create_window", time.Hour)
}

// LoadConfig builds the configuration from defaults, an optional config file,
// environment variables and, for sensitive values, Docker secrets.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Env = GetEnvironment()

	// Docker secrets fill sensitive values that the environment left empty
	fillFromSecret(&cfg.DBPassword, "db_password")
	fillFromSecret(&cfg.JWTSecret, "jwt_secret")
	fillFromSecret(&cfg.RedisPassword, "redis_password")

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func fillFromSecret(dst *string, name string) {
	if *dst != "" {
		return
	}
	*dst = readSecret(name)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
