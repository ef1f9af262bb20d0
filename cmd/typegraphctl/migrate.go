package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emergent-company/typegraph/internal/migrate"
	"github.com/emergent-company/typegraph/pkg/logger"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
		Long: `Manage the typegraph schema with the embedded goose migrations.

Examples:
  typegraphctl migrate up
  typegraphctl migrate up-to 1
  typegraphctl migrate status
  typegraphctl migrate down`,
	}

	cmd.AddCommand(
		migrateCommand("up", "Apply all pending migrations", cobra.NoArgs,
			func(cmd *cobra.Command, m *migrate.Migrator, _ []string) error {
				return m.Up(cmd.Context())
			}),
		migrateCommand("up-to VERSION", "Apply migrations up to and including VERSION", cobra.ExactArgs(1),
			func(cmd *cobra.Command, m *migrate.Migrator, args []string) error {
				version, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.UpTo(cmd.Context(), version)
			}),
		migrateCommand("down", "Roll back the most recent migration", cobra.NoArgs,
			func(cmd *cobra.Command, m *migrate.Migrator, _ []string) error {
				return m.Down(cmd.Context())
			}),
		migrateCommand("reset", "Roll back every migration", cobra.NoArgs,
			func(cmd *cobra.Command, m *migrate.Migrator, _ []string) error {
				return m.Reset(cmd.Context())
			}),
		migrateCommand("status", "Print the state of every migration", cobra.NoArgs,
			func(cmd *cobra.Command, m *migrate.Migrator, _ []string) error {
				status, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
				for _, st := range status {
					applied := "-"
					if !st.AppliedAt.IsZero() {
						applied = st.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
				}
				return w.Flush()
			}),
		migrateCommand("version", "Print the current schema version", cobra.NoArgs,
			func(cmd *cobra.Command, m *migrate.Migrator, _ []string) error {
				version, err := m.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			}),
	)
	return cmd
}

func migrateCommand(use, short string, args cobra.PositionalArgs, run func(*cobra.Command, *migrate.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			_, dsn, err := loadConfig()
			if err != nil {
				return err
			}

			log, err := logger.NewZapLogger()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			db, err := openBunDB(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			m, err := migrate.NewMigrator(db, log.With(zap.String("command", cmd.Name())))
			if err != nil {
				return err
			}
			return run(cmd, m, argv)
		},
	}
}
