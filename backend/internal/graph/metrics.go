package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybergraph_graph_queries_total",
		Help: "Cypher statements executed against Neo4j, by result",
	}, []string{"result"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cybergraph_graph_query_duration_seconds",
		Help:    "Latency of single Cypher statements",
		Buckets: prometheus.DefBuckets,
	})

	// RecordsTotal counts per-record upsert outcomes. kind is node,
	// relationship or an ATT&CK object type; result is created, failed or
	// skipped.
	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybergraph_records_total",
		Help: "Upserted records by kind and result",
	}, []string{"kind", "result"})

	pathQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cybergraph_path_queries_total",
		Help: "Path finding calls by result",
	}, []string{"result"})

	retrievalKeywordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cybergraph_retrieval_keyword_failures_total",
		Help: "Keyword neighbourhood queries that failed and were skipped",
	})
)
