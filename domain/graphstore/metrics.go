package graphstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/emergent-company/typegraph/domain/subgraph"
)

var (
	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typegraph_store_writes_total",
		Help: "Store write operations by operation and outcome",
	}, []string{"operation", "outcome"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "typegraph_structural_query_duration_seconds",
		Help:    "Structural query latency including dependency resolution",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "outcome"})

	subgraphVertices = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "typegraph_subgraph_vertices",
		Help:    "Number of vertices returned by a structural query",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"kind"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func observeWrite(operation string, err error) {
	writesTotal.WithLabelValues(operation, outcome(err)).Inc()
}

// observeQuery starts timing a structural query; the returned func records
// the result.
func observeQuery(kind string) func(*subgraph.Subgraph, error) {
	start := time.Now()
	return func(s *subgraph.Subgraph, err error) {
		queryDuration.WithLabelValues(kind, outcome(err)).Observe(time.Since(start).Seconds())
		if s != nil {
			subgraphVertices.WithLabelValues(kind).Observe(float64(len(s.Vertices)))
		}
	}
}
