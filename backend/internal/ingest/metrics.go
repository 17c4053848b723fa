package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sourcesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cybergraph_sources_total",
	Help: "Source ingestions by source type and result",
}, []string{"source_type", "result"})
