package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Snapshot outcome labels.
const (
	ReasonOK                  = "ok"
	ReasonFetchError          = "fetch_error"
	ReasonEmpty               = "empty"
	ReasonSymbolMissing       = "symbol_missing"
	ReasonMissingColumns      = "missing_columns"
	ReasonInsufficientHistory = "insufficient_history"
)

// Metrics holds the Prometheus metrics for the watchlist pipeline and web UI.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	SnapshotsTotal *prometheus.CounterVec   // labels: outcome
	FetchDur       *prometheus.HistogramVec // labels: source
	HTTPRequests   *prometheus.CounterVec   // labels: route, code
}

// NewMetrics registers and returns all metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stochwatch_snapshots_total",
			Help: "Symbol snapshots computed, by outcome",
		}, []string{"outcome"}),
		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stochwatch_fetch_duration_seconds",
			Help:    "Data source request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stochwatch_http_requests_total",
			Help: "Web UI requests served",
		}, []string{"route", "code"}),
	}
	m.Registry.MustRegister(
		m.SnapshotsTotal,
		m.FetchDur,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSnapshot counts one snapshot with the given outcome.
func (m *Metrics) ObserveSnapshot(outcome string) {
	if m == nil {
		return
	}
	m.SnapshotsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetch records how long a data source call took.
func (m *Metrics) ObserveFetch(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDur.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, http.StatusText(code)).Inc()
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
