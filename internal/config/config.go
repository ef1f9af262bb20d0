// Package config loads typegraph settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

const environmentProduction = "production"

type Config struct {
	ServerPort    int    `env:"SERVER_PORT"    envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT"    envDefault:"local"`
	Debug         bool   `env:"DEBUG"          envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL"      envDefault:"info"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT"  envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT"  envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"     envDefault:"10s"`

	Database DatabaseConfig
	Query    QueryConfig
	Otel     OtelConfig
}

// IsProduction reports whether diagnostics such as /debug must be hidden.
func (c *Config) IsProduction() bool {
	return c.Environment == environmentProduction
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT %d out of range", c.ServerPort))
	}
	if err := c.Database.validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Query.MaxResolveDepth < 0 {
		errs = append(errs, fmt.Errorf("QUERY_MAX_RESOLVE_DEPTH must not be negative, got %d", c.Query.MaxResolveDepth))
	}
	if r := c.Otel.SamplingRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLING_RATE must be within [0, 1], got %g", r))
	}
	return errors.Join(errs...)
}

// NewConfig parses and validates the environment.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.Int("query_root_concurrency", cfg.Query.Concurrency()),
		slog.Bool("tracing", cfg.Otel.Enabled()),
	)
	return cfg, nil
}
