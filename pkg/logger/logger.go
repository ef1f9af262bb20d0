// Package logger builds the process-wide slog logger and the zap logger used by
// the migrator, and provides the attribute helpers every package logs with.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("logger",
	fx.Provide(
		NewLogger,
		NewZapLogger,
	),
)

// NewLogger creates the application logger. LOG_LEVEL selects the level
// (debug, info, warn, error; defaults to info) and GO_ENV=production switches
// to JSON output.
func NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromEnv()}

	var handler slog.Handler
	if isProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// NewZapLogger creates a zap logger honouring the same environment variables.
func NewZapLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if isProduction() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	var level zapcore.Level
	switch levelFromEnv() {
	case slog.LevelDebug:
		level = zapcore.DebugLevel
	case slog.LevelWarn:
		level = zapcore.WarnLevel
	case slog.LevelError:
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

// Scope tags a log record with the component that produced it.
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Error attaches an error to a log record.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isProduction() bool {
	return strings.EqualFold(os.Getenv("GO_ENV"), "production")
}
