// Package metrics holds the process-wide Prometheus instruments. Every
// collector lives on a private registry and is registered explicitly at
// construction; nothing registers at import time.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles one service's instruments. All recording methods tolerate a
// nil receiver, so components can run uninstrumented in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ProviderRequests *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
	ProviderErrors   *prometheus.CounterVec
	Tokens           *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	StageDuration   *prometheus.HistogramVec
	ChunksRetrieved prometheus.Histogram
}

// New builds and registers the service's instruments under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
	}, []string{"method", "path"})

	m.ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total external model API requests.",
	}, []string{"model", "kind"})
	m.ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "External model API latency in seconds.",
	}, []string{"model", "kind"})
	m.ProviderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_errors_total",
		Help:      "Total external model API errors.",
	}, []string{"model", "kind"})
	m.Tokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_total",
		Help:      "Total tokens processed by the model provider.",
	}, []string{"model", "token_type"})

	m.CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total cache hits.",
	}, []string{"cache_type"})
	m.CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total cache misses.",
	}, []string{"cache_type"})

	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Question-answering time per stage in seconds.",
	}, []string{"stage"})
	m.ChunksRetrieved = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chunks_retrieved",
		Help:      "Chunks retrieved per query.",
		Buckets:   []float64{0, 1, 3, 5, 10, 20, 50},
	})

	m.registry.MustRegister(
		m.HTTPRequests, m.HTTPDuration,
		m.ProviderRequests, m.ProviderDuration, m.ProviderErrors, m.Tokens,
		m.CacheHits, m.CacheMisses,
		m.StageDuration, m.ChunksRetrieved,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPRequest records one served request.
func (m *Metrics) HTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ProviderCall records one external model API call. kind is "chat" or
// "embedding".
func (m *Metrics) ProviderCall(model, kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(model, kind).Inc()
	m.ProviderDuration.WithLabelValues(model, kind).Observe(elapsed.Seconds())
	if err != nil {
		m.ProviderErrors.WithLabelValues(model, kind).Inc()
	}
}

// AddTokens records provider token usage.
func (m *Metrics) AddTokens(model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.Tokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	if completion > 0 {
		m.Tokens.WithLabelValues(model, "completion").Add(float64(completion))
	}
}

// CacheHit records a hit in the named cache ("embedding", "chat", "answer").
func (m *Metrics) CacheHit(cacheType string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// CacheMiss records a miss in the named cache.
func (m *Metrics) CacheMiss(cacheType string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

// Stage records how long one question-answering stage took ("embedding",
// "retrieval", "generation", "total").
func (m *Metrics) Stage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Chunks records the retrieval result size for one query.
func (m *Metrics) Chunks(n int) {
	if m == nil {
		return
	}
	m.ChunksRetrieved.Observe(float64(n))
}
