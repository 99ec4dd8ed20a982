package recurrence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// expansionTotal counts engine expansions by frequency and stop reason
	expansionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurrence_expansion_total",
		Help: "Total rule expansions by frequency and stop reason",
	}, []string{"frequency", "stop"})

	// expansionDuration tracks expansion latency
	expansionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recurrence_expansion_duration_seconds",
		Help:    "Rule expansion duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10us to ~330ms
	}, []string{"frequency"})

	expansionOccurrences = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recurrence_expansion_occurrences",
		Help:    "Number of occurrences returned per expansion",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	})

	expansionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurrence_expansion_cache_hits_total",
		Help: "Total expansion cache hits",
	})

	expansionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurrence_expansion_cache_misses_total",
		Help: "Total expansion cache misses",
	})

	// expansionTruncated counts expansions cut by MaxExpansionOccurrences
	expansionTruncated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurrence_expansion_truncated_total",
		Help: "Total expansions cut short by the occurrence cap",
	})
)
