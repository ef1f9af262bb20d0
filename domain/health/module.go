// Package health serves liveness, readiness, debug and Prometheus endpoints.
package health

import (
	"go.uber.org/fx"
)

// Module registers the health and metrics handlers on the shared Echo server.
var Module = fx.Module("health",
	fx.Provide(NewHandler),
	fx.Provide(NewMetricsHandler),
	fx.Invoke(RegisterRoutes),
)
