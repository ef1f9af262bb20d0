package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"time"
)

var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT"     envDefault:"5432"`
	User     string `env:"POSTGRES_USER"     envDefault:"typegraph"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:""`
	Database string `env:"POSTGRES_DB"       envDefault:"typegraph"`
	SSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME"  envDefault:"5m"`

	// QueryDebug logs every statement bun executes.
	QueryDebug bool `env:"DB_QUERY_DEBUG" envDefault:"false"`
	// SlowQuery is the duration above which a statement is logged as slow.
	SlowQuery time.Duration `env:"DB_SLOW_QUERY" envDefault:"3s"`
	// AutoMigrate applies pending goose migrations on startup.
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the connection URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func (d *DatabaseConfig) validate() error {
	if !slices.Contains(sslModes, d.SSLMode) {
		return fmt.Errorf("POSTGRES_SSL_MODE %q is not one of %v", d.SSLMode, sslModes)
	}
	if d.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", d.MaxOpenConns)
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) exceeds DB_MAX_OPEN_CONNS (%d)", d.MaxIdleConns, d.MaxOpenConns)
	}
	return nil
}
