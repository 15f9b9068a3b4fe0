package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	escalations     *prometheus.CounterVec
	sweepIssues     *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grievance_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_http_errors_total",
			Help: "Errors rendered to clients by error code.",
		}, []string{"route", "method", "code"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_escalations_total",
			Help: "Issues escalated by the SLA sweeper.",
		}, []string{"level", "role"}),
		sweepIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_sweep_issues_total",
			Help: "Overdue issues processed by the sweeper by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grievance_sweep_duration_seconds",
			Help:    "Wall time of one escalation sweep.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.escalations,
		m.sweepIssues,
		m.sweepDuration,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// IncEscalation counts one escalation to the given level and role.
func (m *Metrics) IncEscalation(level int, role string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(strconv.Itoa(level), role).Inc()
}

// ObserveSweep records the outcome of one sweep cycle.
func (m *Metrics) ObserveSweep(scanned, escalated, skipped, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sweepIssues.WithLabelValues("scanned").Add(float64(scanned))
	m.sweepIssues.WithLabelValues("escalated").Add(float64(escalated))
	m.sweepIssues.WithLabelValues("skipped").Add(float64(skipped))
	m.sweepIssues.WithLabelValues("failed").Add(float64(failed))
	m.sweepDuration.Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
