package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics. Registered explicitly from main (no init()).
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopsearch",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding batch requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shopsearch",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding batch request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTextsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopsearch",
			Name:      "embedding_texts_total",
			Help:      "Total texts embedded",
		},
		[]string{"model"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopsearch",
			Name:      "search_requests_total",
			Help:      "Total search requests by outcome",
		},
		[]string{"status"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shopsearch",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shopsearch",
			Name:      "search_results_returned",
			Help:      "Collapsed results returned per search",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
		},
	)

	IndexBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shopsearch",
			Name:      "index_batches_total",
			Help:      "Upsert batches by outcome",
		},
		[]string{"status"},
	)

	IndexViewsUpserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shopsearch",
			Name:      "index_views_upserted_total",
			Help:      "Total product views written to the vector index",
		},
	)
)

// Register registers all pipeline metrics with the default registry.
func Register() {
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTextsTotal,
		SearchRequestsTotal,
		SearchDuration,
		SearchResultsReturned,
		IndexBatchesTotal,
		IndexViewsUpserted,
	)
}
