package health

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers health, version and metrics routes. None of them
// are traced or request-logged.
func RegisterRoutes(e *echo.Echo, h *Handler, m *MetricsHandler) {
	e.GET("/health", h.Health)
	e.GET("/healthz", h.Healthz)
	e.GET("/ready", h.Ready)
	e.GET("/debug", h.Debug)
	e.GET("/version", h.Version)

	api := e.Group("/api")
	api.GET("/health", h.Health)
	api.GET("/version", h.Version)

	e.GET("/metrics", m.Metrics)
}
