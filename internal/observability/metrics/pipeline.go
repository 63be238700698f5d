package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline collects counters for the extraction and embedding path.
// A nil *Pipeline is valid and records nothing, so lower layers do not
// need to care whether metrics were wired.
type Pipeline struct {
	registry *prometheus.Registry

	extractionTotal    *prometheus.CounterVec
	extractionRetries  prometheus.Counter
	comparisonTotal    *prometheus.CounterVec
	comparisonDuration prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
}

func NewPipeline(service string) *Pipeline {
	registry := prometheus.NewRegistry()

	extractionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pscope",
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Total coverage extraction calls by outcome.",
		},
		[]string{"service", "status"},
	)
	extractionRetries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pscope",
			Subsystem: "extraction",
			Name:      "retries_total",
			Help:      "Total degraded retries after rate-limit responses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	comparisonTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pscope",
			Subsystem: "comparison",
			Name:      "runs_total",
			Help:      "Total policy comparisons by outcome.",
		},
		[]string{"service", "status"},
	)
	comparisonDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pscope",
			Subsystem: "comparison",
			Name:      "duration_seconds",
			Help:      "End-to-end comparison duration in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pscope",
			Subsystem: "embedding",
			Name:      "cache_hits_total",
			Help:      "Embedding cache hits.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pscope",
			Subsystem: "embedding",
			Name:      "cache_misses_total",
			Help:      "Embedding cache misses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		extractionTotal,
		extractionRetries,
		comparisonTotal,
		comparisonDuration,
		cacheHits,
		cacheMisses,
	)

	return &Pipeline{
		registry:           registry,
		extractionTotal:    extractionTotal,
		extractionRetries:  extractionRetries,
		comparisonTotal:    comparisonTotal,
		comparisonDuration: comparisonDuration,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
	}
}

func (m *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Pipeline) Extraction(service, status string) {
	if m == nil {
		return
	}
	m.extractionTotal.WithLabelValues(service, status).Inc()
}

func (m *Pipeline) ExtractionRetry() {
	if m == nil {
		return
	}
	m.extractionRetries.Inc()
}

func (m *Pipeline) Comparison(service string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.comparisonTotal.WithLabelValues(service, status).Inc()
	m.comparisonDuration.Observe(duration.Seconds())
}

func (m *Pipeline) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Pipeline) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
