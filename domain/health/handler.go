package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/emergent-company/typegraph/internal/config"
	"github.com/emergent-company/typegraph/internal/version"
)

const checkTimeout = 5 * time.Second

// Database is the part of *pgxpool.Pool the health checks use.
type Database interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Handler handles health check requests
type Handler struct {
	db      Database
	pool    *pgxpool.Pool
	cfg     *config.Config
	startAt time.Time
}

// NewHandler creates a new health handler
func NewHandler(pool *pgxpool.Pool, cfg *config.Config) *Handler {
	return &Handler{
		db:      pool,
		pool:    pool,
		cfg:     cfg,
		startAt: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp"`
	Uptime    string              `json:"uptime"`
	Version   version.VersionInfo `json:"version"`
	Checks    map[string]Check    `json:"checks"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func healthy() Check { return Check{Status: "healthy"} }

func unhealthy(msg string) Check { return Check{Status: "unhealthy", Message: msg} }

// schemaVersion reports the highest applied goose migration.
func (h *Handler) schemaVersion(ctx context.Context) (int64, error) {
	var v int64
	err := h.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied`,
	).Scan(&v)
	return v, err
}

func (h *Handler) checks(ctx context.Context) map[string]Check {
	if err := h.db.Ping(ctx); err != nil {
		return map[string]Check{
			"database": unhealthy(err.Error()),
			"schema":   unhealthy("database unreachable"),
		}
	}

	checks := map[string]Check{"database": healthy()}
	switch v, err := h.schemaVersion(ctx); {
	case err != nil:
		checks["schema"] = unhealthy(err.Error())
	case v == 0:
		checks["schema"] = unhealthy("no migrations applied")
	default:
		checks["schema"] = healthy()
	}
	return checks
}

// Health reports database connectivity and whether migrations have run.
//
// GET /health
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	checks := h.checks(ctx)
	status, code := "healthy", http.StatusOK
	for _, check := range checks {
		if check.Status != "healthy" {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}

	return c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Info(),
		Checks:    checks,
	})
}

// GET /healthz
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready fails until the database answers and the schema is migrated.
//
// GET /ready
func (h *Handler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	for name, check := range h.checks(ctx) {
		if check.Status != "healthy" {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":  "not_ready",
				"check":   name,
				"message": check.Message,
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ready"})
}

// GET /version
func (h *Handler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Info())
}

// Debug returns runtime, query and pool settings. Hidden in production.
//
// GET /debug
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.IsProduction() {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stat := h.pool.Stat()
	return c.JSON(http.StatusOK, map[string]any{
		"environment": h.cfg.Environment,
		"debug":       h.cfg.Debug,
		"version":     version.Info().String(),
		"go_version":  runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc_mb": mem.Alloc / 1024 / 1024,
			"sys_mb":   mem.Sys / 1024 / 1024,
			"num_gc":   mem.NumGC,
		},
		"query": map[string]any{
			"root_concurrency":  h.cfg.Query.Concurrency(),
			"max_resolve_depth": h.cfg.Query.MaxResolveDepth,
		},
		"database": map[string]any{
			"host":         h.cfg.Database.Host,
			"database":     h.cfg.Database.Database,
			"auto_migrate": h.cfg.Database.AutoMigrate,
			"pool_total":   stat.TotalConns(),
			"pool_idle":    stat.IdleConns(),
			"pool_in_use":  stat.AcquiredConns(),
		},
	})
}
