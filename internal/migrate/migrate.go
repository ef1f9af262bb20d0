// Package migrate applies the embedded goose migrations in package
// migrations, on startup and from typegraphctl.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/migrations"
)

var Module = fx.Module("migrate",
	fx.Provide(NewMigrator),
	fx.Invoke(RunOnStart),
)

// Migrator wraps a goose provider. Concurrent migrators on one database
// serialize on a postgres advisory lock.
type Migrator struct {
	provider *goose.Provider
	log      *zap.Logger
}

func NewMigrator(db *bun.DB, log *zap.Logger) (*Migrator, error) {
	return NewSQLMigrator(db.DB, log)
}

func NewSQLMigrator(db *sql.DB, log *zap.Logger) (*Migrator, error) {
	fsys, err := fs.Sub(migrations.FS, migrations.Dir)
	if err != nil {
		return nil, err
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("create migration lock: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys, goose.WithSessionLocker(locker))
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return &Migrator{provider: provider, log: log.Named("migrator")}, nil
}

// RunOnStart migrates before the server accepts requests unless
// DB_AUTO_MIGRATE is off.
func RunOnStart(lc fx.Lifecycle, m *Migrator, cfg *config.Config) {
	if !cfg.Database.AutoMigrate {
		m.log.Info("automatic migrations disabled")
		return
	}
	lc.Append(fx.StartHook(m.Up))
}

// RunWithDB applies every pending migration to db without logging.
func RunWithDB(ctx context.Context, db *sql.DB) error {
	m, err := NewSQLMigrator(db, zap.NewNop())
	if err != nil {
		return err
	}
	return m.Up(ctx)
}

func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	m.logResults(results)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if len(results) == 0 {
		m.log.Info("schema up to date")
	}
	return nil
}

// UpTo applies pending migrations up to and including version.
func (m *Migrator) UpTo(ctx context.Context, version int64) error {
	results, err := m.provider.UpTo(ctx, version)
	m.logResults(results)
	if err != nil {
		return fmt.Errorf("apply migrations up to %d: %w", version, err)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if result != nil {
		m.logResults([]*goose.MigrationResult{result})
	}
	if err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// Reset rolls back every applied migration.
func (m *Migrator) Reset(ctx context.Context) error {
	m.log.Warn("resetting database schema")
	results, err := m.provider.DownTo(ctx, 0)
	m.logResults(results)
	if err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	return nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	status, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	return status, nil
}

// Version returns the highest applied migration, 0 on an empty database.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}

func (m *Migrator) logResults(results []*goose.MigrationResult) {
	for _, r := range results {
		fields := []zap.Field{
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.String("direction", r.Direction),
			zap.Duration("duration", r.Duration),
		}
		if r.Error != nil {
			m.log.Error("migration failed", append(fields, zap.Error(r.Error))...)
			continue
		}
		m.log.Info("migration applied", fields...)
	}
}
