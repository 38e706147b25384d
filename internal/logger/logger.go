// Package logger builds the application's zap logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/foodgram/backend/config"
)

// New returns a production JSON logger in production and a console logger
// everywhere else. level overrides the default level when set.
func New(env config.Environment, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env.IsProduction() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.With(zap.String("env", string(env))), nil
}

// Close flushes buffered log entries.
func Close(l *zap.Logger) {
	// Sync on stdout/stderr returns EINVAL on some platforms; nothing to do about it.
	_ = l.Sync()
}
