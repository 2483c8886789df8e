package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and ingestion Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "queries_total",
			Help:      "Total retrieval queries by effective mode",
		},
		[]string{"mode"},
	)

	QueryDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "query_degraded_total",
			Help:      "Queries that fell back to a single branch, by reason",
		},
		[]string{"reason"},
	)

	RerankFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "rerank_fallback_total",
			Help:      "Reranks that fell back, by reason",
		},
		[]string{"reason"},
	)

	IngestSourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "ingest_sources_total",
			Help:      "Ingested sources by result",
		},
		[]string{"result"}, // "succeeded" / "failed"
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragdex",
			Name:      "ingest_chunks_total",
			Help:      "Total chunks written by ingestion",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval and ingestion metrics. Must be
// called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDegradedTotal)
	prometheus.MustRegister(RerankFallbackTotal)
	prometheus.MustRegister(IngestSourcesTotal)
	prometheus.MustRegister(IngestChunksTotal)
	retrievalMetricsRegistered = true
}
