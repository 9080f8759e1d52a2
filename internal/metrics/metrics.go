package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Orchestrator metrics
	Decisions *prometheus.CounterVec

	// External API metrics
	FetchLatency *prometheus.HistogramVec
	FetchErrors  *prometheus.CounterVec

	// Store metrics
	StoreErrors *prometheus.CounterVec

	// Sync metrics
	SyncDays *prometheus.CounterVec
	SyncJobs *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests    *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
	ResponseCache   *prometheus.CounterVec
	RateLimitHits   *prometheus.CounterVec
	TenantPoolsOpen prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metrics_decisions_total",
				Help:      "Metrics requests by serving path",
			},
			[]string{"path"},
		),
		FetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "meta_fetch_latency_seconds",
				Help:      "Meta Graph API insights call latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		FetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "meta_fetch_errors_total",
				Help:      "Failed Meta Graph API insights calls",
			},
			[]string{"kind"},
		),
		StoreErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Day metrics store failures by operation",
			},
			[]string{"op"},
		),
		SyncDays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_days_total",
				Help:      "Days processed by sync jobs by outcome",
			},
			[]string{"outcome"},
		),
		SyncJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_jobs_total",
				Help:      "Sync jobs run by mode",
			},
			[]string{"mode"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ResponseCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_cache_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint"},
		),
		TenantPoolsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tenant_pools_open",
				Help:      "Open per-tenant PostgreSQL pools",
			},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler for gatherer g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordDecision records which path served a metrics request.
func (m *Metrics) RecordDecision(path string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(path).Inc()
}

// RecordFetch records an external insights call.
func (m *Metrics) RecordFetch(kind string, latency time.Duration, err error) {
	if m == nil {
		return
	}
	m.FetchLatency.WithLabelValues(kind).Observe(latency.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(kind).Inc()
	}
}

// RecordStoreError records a store failure.
func (m *Metrics) RecordStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}

// RecordSyncDay records the outcome of one sync day.
func (m *Metrics) RecordSyncDay(success bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "synced"
	}
	m.SyncDays.WithLabelValues(outcome).Inc()
}

// RecordSyncJob records a started sync job.
func (m *Metrics) RecordSyncJob(mode string) {
	if m == nil {
		return
	}
	m.SyncJobs.WithLabelValues(mode).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// RecordResponseCache records a response cache lookup.
func (m *Metrics) RecordResponseCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ResponseCache.WithLabelValues(result).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// SetTenantPools updates the open tenant pool gauge.
func (m *Metrics) SetTenantPools(n int) {
	if m == nil {
		return
	}
	m.TenantPoolsOpen.Set(float64(n))
}
