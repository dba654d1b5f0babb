package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics. All recording is fire-and-forget: a
// metrics failure never blocks or fails a search request.
var (
	SearchGraphCacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "km",
			Name:      "search_graph_cache_events_total",
			Help:      "Graph context cache events during search enrichment",
		},
		[]string{"status"}, // "hit" / "miss" / "error"
	)

	SearchGraphLookupSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "km",
			Name:      "search_graph_lookup_seconds",
			Help:      "Graph node lookup duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	SearchGraphSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "km",
			Name:      "search_graph_skipped_total",
			Help:      "Graph lookups skipped due to budget exhaustion",
		},
		[]string{"reason"}, // "time" / "limit"
	)

	SearchScoreDelta = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "km",
			Name:      "search_score_delta",
			Help:      "Difference between adjusted score and weighted base score",
			Buckets:   []float64{-1, -0.5, -0.25, -0.1, 0, 0.1, 0.25, 0.5, 1, 2},
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchGraphCacheEvents)
	prometheus.MustRegister(SearchGraphLookupSeconds)
	prometheus.MustRegister(SearchGraphSkippedTotal)
	prometheus.MustRegister(SearchScoreDelta)
	searchMetricsRegistered = true
}
