package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"

	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/internal/database"
	"github.com/emergent-company/typegraph/internal/migrate"
)

// templateDB is migrated once per test binary and cloned for every suite.
const templateDB = "typegraph_test_template"

var (
	templateOnce sync.Once
	templateErr  error
)

type TestDB struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	DB     *bun.DB
	Name   string

	base *config.Config
}

// Close disconnects and drops the database.
func (t *TestDB) Close() {
	t.DB.Close()
	t.Pool.Close()
	dropDatabase(context.Background(), t.base, t.Name)
}

// SetupTestDB creates typegraph_test_<suffix>_<nanos> from the migrated
// template. Connection settings come from the usual POSTGRES_* variables.
func SetupTestDB(ctx context.Context, suffix string) (*TestDB, error) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	base, err := config.NewConfig(quiet)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	templateOnce.Do(func() { templateErr = ensureTemplate(ctx, base) })
	if templateErr != nil {
		return nil, fmt.Errorf("prepare template: %w", templateErr)
	}

	name := fmt.Sprintf("typegraph_test_%s_%d", suffix, time.Now().UnixNano())
	err = withAdmin(ctx, base, func(admin *pgxpool.Pool) error {
		_, err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s TEMPLATE %s",
			pgx.Identifier{name}.Sanitize(), pgx.Identifier{templateDB}.Sanitize()))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("clone template: %w", err)
	}

	cfg := on(base, name)
	pool, err := connect(ctx, cfg)
	if err != nil {
		dropDatabase(ctx, base, name)
		return nil, err
	}

	return &TestDB{
		Config: cfg,
		Pool:   pool,
		DB:     database.Bun(pool, cfg.Database, quiet),
		Name:   name,
		base:   base,
	}, nil
}

func ensureTemplate(ctx context.Context, base *config.Config) error {
	var exists bool
	err := withAdmin(ctx, base, func(admin *pgxpool.Pool) error {
		err := admin.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", templateDB).Scan(&exists)
		if err != nil || exists {
			return err
		}
		_, err = admin.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{templateDB}.Sanitize())
		return err
	})
	if err != nil || exists {
		return err
	}

	pool, err := connect(ctx, on(base, templateDB))
	if err != nil {
		dropDatabase(ctx, base, templateDB)
		return err
	}
	defer pool.Close()

	sqldb := stdlib.OpenDBFromPool(pool)
	defer sqldb.Close()

	if err := migrate.RunWithDB(ctx, sqldb); err != nil {
		dropDatabase(ctx, base, templateDB)
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// on returns a copy of cfg pointed at database name.
func on(cfg *config.Config, name string) *config.Config {
	c := *cfg
	c.Database.Database = name
	return &c
}

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dc := cfg.Database
	dc.MaxOpenConns = 5
	dc.MaxIdleConns = 0
	pool, err := database.NewPool(ctx, dc)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", dc.Database, err)
	}
	return pool, nil
}

// withAdmin runs fn on a short-lived pool to the postgres maintenance
// database.
func withAdmin(ctx context.Context, base *config.Config, fn func(*pgxpool.Pool) error) error {
	admin, err := connect(ctx, on(base, "postgres"))
	if err != nil {
		return err
	}
	defer admin.Close()
	return fn(admin)
}

func dropDatabase(ctx context.Context, base *config.Config, name string) {
	_ = withAdmin(ctx, base, func(admin *pgxpool.Pool) error {
		_, _ = admin.Exec(ctx, `
			SELECT pg_terminate_backend(pid)
			FROM pg_stat_activity
			WHERE datname = $1 AND pid <> pg_backend_pid()`, name)
		_, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize())
		return err
	})
}

// TruncateTables empties every table except goose's version table. Store
// reads run on the pgx pool and cannot see an uncommitted bun transaction,
// so suites reset state this way instead of rolling back.
func TruncateTables(ctx context.Context, db bun.IDB) error {
	var tables []string
	err := db.NewRaw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'goose_db_version'`).Scan(ctx, &tables)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		return nil
	}

	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = pgx.Identifier{t}.Sanitize()
	}
	if _, err := db.NewRaw("TRUNCATE TABLE " + strings.Join(quoted, ", ") + " CASCADE").Exec(ctx); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
