package testutil

import (
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/typegraph/domain/graphstore"
	"github.com/emergent-company/typegraph/domain/health"
	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/internal/server"
)

// TestServer is the API wired the way cmd/server wires it, on a test
// database and without fx.
type TestServer struct {
	Echo   *echo.Echo
	Store  *graphstore.Store
	Config *config.Config
	Log    *slog.Logger
}

func NewTestServer(testDB *TestDB) *TestServer {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	e := server.NewEcho(server.EchoParams{Config: testDB.Config, Log: log})

	hh := health.NewHandler(testDB.Pool, testDB.Config)
	e.GET("/health", hh.Health)
	e.GET("/ready", hh.Ready)

	store := graphstore.NewStore(testDB.DB, testDB.Pool, testDB.Config, log)
	graphstore.RegisterRoutes(e, graphstore.NewHandler(store))

	return &TestServer{
		Echo:   e,
		Store:  store,
		Config: testDB.Config,
		Log:    log,
	}
}
