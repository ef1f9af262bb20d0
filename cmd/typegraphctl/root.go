package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/internal/version"
)

var rootFlags struct {
	dsn string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "typegraphctl",
		Short: "Administer a typegraph database",
		Long: `Command-line tool for operating a typegraph store.

Connection priority (first found wins):
  1. --dsn flag
  2. DATABASE_URL environment variable
  3. POSTGRES_* environment variables (see .env)`,
		Version:      version.Info().String(),
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&rootFlags.dsn, "dsn", "", "PostgreSQL connection string (overrides environment)")

	root.AddCommand(newMigrateCommand())
	root.AddCommand(newLoadCommand())
	return root
}

// loadConfig reads the environment configuration and applies the DSN
// override, if any.
func loadConfig() (*config.Config, string, error) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg, err := config.NewConfig(log)
	if err != nil {
		return nil, "", err
	}

	dsn := rootFlags.dsn
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}
	return cfg, dsn, nil
}

func openBunDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
