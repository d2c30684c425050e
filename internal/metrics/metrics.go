// Package metrics holds the Prometheus collectors of the application.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	recordsWritten  *prometheus.CounterVec
	recordsSkipped  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	syncOutcomes    *prometheus.CounterVec
	publishFailures prometheus.Counter
	rateLimited     prometheus.Counter
	suspicious      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bottega_http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bottega_http_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		recordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bottega_records_written_total",
				Help: "Sales, expenses and tasks written, by kind and operation.",
			},
			[]string{"kind", "operation"},
		),
		recordsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bottega_aggregation_skipped_records_total",
				Help: "Records skipped by aggregation because of a malformed date.",
			},
			[]string{"kind"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bottega_cache_hits_total",
				Help: "Chart cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bottega_cache_misses_total",
				Help: "Chart cache misses.",
			},
			[]string{"cache"},
		),
		syncOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bottega_sync_total",
				Help: "Spreadsheet sync attempts by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		publishFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bottega_sync_publish_failures_total",
				Help: "Sync messages that could not be published.",
			},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bottega_http_rate_limited_total",
				Help: "Requests rejected by the per-client rate limit.",
			},
		),
		suspicious: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bottega_http_suspicious_requests_total",
				Help: "Requests matching a known scanner pattern, by reason.",
			},
			[]string{"reason"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncRecordWritten(kind, operation string) {
	if m == nil {
		return
	}
	m.recordsWritten.WithLabelValues(kind, operation).Inc()
}

func (m *Metrics) AddSkipped(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsSkipped.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// Sync outcomes.
const (
	OutcomeSynced   = "synced"
	OutcomeFailed   = "failed"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "breaker_open"
)

func (m *Metrics) IncSync(kind, outcome string) {
	if m == nil {
		return
	}
	m.syncOutcomes.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) IncSuspicious(reason string) {
	if m == nil {
		return
	}
	m.suspicious.WithLabelValues(reason).Inc()
}

// NewServer serves the registry on addr for processes without their own
// HTTP surface. GET /healthz answers 200.
func NewServer(addr string, m *Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}
