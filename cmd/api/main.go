package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/logger"
	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/server"
	"github.com/foodgram/backend/internal/service"
	"github.com/foodgram/backend/internal/storage"
	"github.com/foodgram/backend/internal/validation"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close(zl)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	db, err := database.New(cfg, zl)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if cfg.AutoMigrate {
		if err := database.RunMigrations(db, cfg.MigrationsDir, zl); err != nil {
			return err
		}
	}

	// Without Redis each instance limits recipe creation on its own.
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = database.NewRedisClient(cfg, zl)
		if err != nil {
			zl.Warn("redis unavailable, using in-process rate limiting", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	images, err := storage.New(ctx, cfg, zl)
	if err != nil {
		return err
	}

	v := validation.New()
	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, zl)
	deps := api.Deps{
		DB:           db,
		Auth:         authService,
		Users:        service.NewUserService(db, images, v, zl),
		Catalog:      service.NewCatalogService(db, v, zl),
		Recipes:      service.NewRecipeService(db, images, v, zl, cfg.BaseURL),
		Interactions: service.NewInteractionService(db, zl),
		Shopping:     service.NewShoppingListService(db),
		Validator:    v,
		CreateLimiter: middleware.NewLimiter(redisClient,
			middleware.NewRecipeCreationConfig(cfg.RecipeCreateLimit, cfg.RecipeCreateWindow)),
		Log: zl,
	}

	srv := server.New(cfg, deps)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		zl.Info("received signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if n, err := authService.PurgeExpiredRevocations(shutdownCtx); err == nil && n > 0 {
		zl.Info("purged expired token revocations", zap.Int64("count", n))
	}
	zl.Info("server stopped")
	return nil
}
