package database

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/pkg/logger"
)

// Bun opens a bun DB over pool. Slow and failed statements are always
// logged; every statement is logged at debug level when QueryDebug is set.
func Bun(pool *pgxpool.Pool, dc config.DatabaseConfig, log *slog.Logger) *bun.DB {
	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
	db.AddQueryHook(&queryHook{log: log, slow: dc.SlowQuery, verbose: dc.QueryDebug})
	return db
}

type queryHook struct {
	log     *slog.Logger
	slow    time.Duration
	verbose bool
}

func (h *queryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	attrs := []any{
		slog.String("operation", event.Operation()),
		slog.String("query", event.Query),
		slog.Duration("duration", elapsed),
	}

	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		h.log.ErrorContext(ctx, "query failed", append(attrs, logger.Error(event.Err))...)
	case h.slow > 0 && elapsed > h.slow:
		h.log.WarnContext(ctx, "slow query", attrs...)
	case h.verbose:
		h.log.DebugContext(ctx, "query", attrs...)
	}
}
