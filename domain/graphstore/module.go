package graphstore

import (
	"go.uber.org/fx"
)

// Module provides the graph store and its HTTP surface.
var Module = fx.Module("graphstore",
	fx.Provide(NewStore),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
