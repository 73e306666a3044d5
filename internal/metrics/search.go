package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and sync Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracksearch",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode"}, // "lexical" / "hybrid"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracksearch",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, embedding included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	SyncDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracksearch",
			Name:      "sync_documents_total",
			Help:      "Documents upserted by project syncs",
		},
		[]string{"source_type"},
	)

	SyncErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracksearch",
			Name:      "sync_errors_total",
			Help:      "Failed batches and cleanups during project syncs",
		},
	)

	SyncDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tracksearch",
			Name:      "sync_deleted_total",
			Help:      "Stale documents removed by project syncs",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and sync metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SyncDocumentsTotal)
	prometheus.MustRegister(SyncErrorsTotal)
	prometheus.MustRegister(SyncDeletedTotal)
	searchMetricsRegistered = true
}
