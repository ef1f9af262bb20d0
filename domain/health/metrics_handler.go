package health

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the Prometheus registry.
type MetricsHandler struct {
	handler echo.HandlerFunc
}

// NewMetricsHandler registers the connection pool gauges and wraps the
// default Prometheus handler.
func NewMetricsHandler(pool *pgxpool.Pool) *MetricsHandler {
	registerPoolCollector(pool)
	return &MetricsHandler{handler: echo.WrapHandler(promhttp.Handler())}
}

// Metrics exposes every registered collector in the Prometheus text format.
func (h *MetricsHandler) Metrics(c echo.Context) error {
	return h.handler(c)
}

func registerPoolCollector(pool *pgxpool.Pool) {
	gauges := []struct {
		name  string
		help  string
		value func(*pgxpool.Stat) float64
	}{
		{"typegraph_db_pool_total_conns", "Connections currently in the pool", func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }},
		{"typegraph_db_pool_idle_conns", "Idle connections in the pool", func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }},
		{"typegraph_db_pool_acquired_conns", "Connections checked out of the pool", func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }},
		{"typegraph_db_pool_max_conns", "Maximum size of the pool", func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }},
	}
	for _, g := range gauges {
		value := g.value
		collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, func() float64 {
			return value(pool.Stat())
		})
		// Registering twice only happens when the fx graph is rebuilt in
		// tests; the first collector keeps reporting.
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}
