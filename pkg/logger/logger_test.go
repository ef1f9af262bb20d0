package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestAttrs(t *testing.T) {
	scope := Scope("graphstore")
	assert.Equal(t, "scope", scope.Key)
	assert.Equal(t, "graphstore", scope.Value.String())

	err := errors.New("connection refused")
	attr := Error(err)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			assert.Equal(t, tt.want, levelFromEnv())
		})
	}
}

func TestNewLogger_Enabled(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	log := NewLogger()

	ctx := context.Background()
	assert.False(t, log.Enabled(ctx, slog.LevelInfo))
	assert.True(t, log.Enabled(ctx, slog.LevelWarn))
	assert.True(t, log.Enabled(ctx, slog.LevelError))
}

func TestNewLogger_ProductionUsesJSON(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	_, ok := NewLogger().Handler().(*slog.JSONHandler)
	assert.True(t, ok)

	t.Setenv("GO_ENV", "")
	_, ok = NewLogger().Handler().(*slog.TextHandler)
	assert.True(t, ok)
}

func TestNewZapLogger_Level(t *testing.T) {
	tests := []struct {
		env  string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.env)
			log, err := NewZapLogger()
			require.NoError(t, err)
			assert.Equal(t, tt.want, log.Level())
		})
	}
}
