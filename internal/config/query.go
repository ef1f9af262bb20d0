package config

// QueryConfig bounds structural query execution.
type QueryConfig struct {
	// RootConcurrency is the number of query roots whose dependencies are
	// resolved in parallel.
	RootConcurrency int `env:"QUERY_ROOT_CONCURRENCY" envDefault:"8"`
	// MaxResolveDepth caps every field of a requested depth bundle. Zero
	// disables the cap.
	MaxResolveDepth int `env:"QUERY_MAX_RESOLVE_DEPTH" envDefault:"255"`
}

// Concurrency returns the errgroup limit, never less than one.
func (q QueryConfig) Concurrency() int {
	return max(q.RootConcurrency, 1)
}
