// Package database provides the two PostgreSQL handles the store uses: a
// pgx pool for structural queries and a bun DB on the same pool for writes.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/pkg/logger"
)

const connectTimeout = 10 * time.Second

var Module = fx.Module("database",
	fx.Provide(
		NewPgxPool,
		NewBunDB,
		fx.Annotate(
			func(db *bun.DB) bun.IDB { return db },
			fx.As(new(bun.IDB)),
		),
	),
)

// NewPgxPool connects and pings the pool, closing it when the app stops.
func NewPgxPool(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	log = log.With(logger.Scope("database"))

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	log.Info("database pool created",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
		slog.Int("max_conns", cfg.Database.MaxOpenConns),
	)

	lc.Append(fx.StopHook(func() {
		log.Info("closing database pool")
		pool.Close()
	}))
	return pool, nil
}

// NewBunDB wraps the pool for bun. Closing it leaves the pool open.
func NewBunDB(lc fx.Lifecycle, pool *pgxpool.Pool, cfg *config.Config, log *slog.Logger) *bun.DB {
	db := Bun(pool, cfg.Database, log.With(logger.Scope("bun")))
	lc.Append(fx.StopHook(db.Close))
	return db
}

// NewPool builds a pgx pool from the configured limits and verifies it can
// reach the server.
func NewPool(ctx context.Context, dc config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dc.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if dc.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(dc.MaxOpenConns)
	}
	poolConfig.MinConns = int32(min(dc.MaxIdleConns, dc.MaxOpenConns))
	if dc.MaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = dc.MaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
