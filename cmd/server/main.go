// Command server runs the typegraph HTTP API: ontology type storage,
// entities and links, and structural queries returning subgraphs.
package main

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/typegraph/domain/graphstore"
	"github.com/emergent-company/typegraph/domain/health"
	"github.com/emergent-company/typegraph/domain/tracing"
	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/internal/database"
	"github.com/emergent-company/typegraph/internal/migrate"
	"github.com/emergent-company/typegraph/internal/server"
	"github.com/emergent-company/typegraph/internal/version"
	"github.com/emergent-company/typegraph/pkg/logger"
)

// Migrations on an empty database can exceed fx's 15s default.
const startTimeout = time.Minute

func main() {
	// .env.local wins over .env
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.StartTimeout(startTimeout),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: log.With(logger.Scope("fx"))}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),

		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		tracing.Module,
		server.Module,

		health.Module,
		graphstore.Module,

		fx.Invoke(func(log *slog.Logger) {
			log.Info("starting typegraph", slog.String("version", version.Info().String()))
		}),
	).Run()
}
