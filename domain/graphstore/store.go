// Package graphstore persists the ontology and the knowledge graph in
// PostgreSQL and answers structural queries over them.
//
// Writes run in one transaction per operation through bun. Reads compile
// filters with pkg/pgquery and run the statements on the pgx pool; links are
// read with a full scan and filtered by the query interpreter. Matching
// records are expanded into a subgraph by the dependency resolution engine.
package graphstore

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"

	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/pkg/logger"
)

// Querier runs compiled statements and bulk copies. *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL-backed ontology and knowledge graph store.
type Store struct {
	db    bun.IDB
	pool  Querier
	query config.QueryConfig
	log   *slog.Logger
}

// NewStore creates a store writing through db and reading compiled queries
// through pool.
func NewStore(db bun.IDB, pool *pgxpool.Pool, cfg *config.Config, log *slog.Logger) *Store {
	return newStore(db, pool, cfg.Query, log)
}

func newStore(db bun.IDB, pool Querier, query config.QueryConfig, log *slog.Logger) *Store {
	return &Store{
		db:    db,
		pool:  pool,
		query: query,
		log:   log.With(logger.Scope("graphstore")),
	}
}
