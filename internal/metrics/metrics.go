// Package metrics provides Prometheus metrics of the API
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics HTTP and domain metrics of revit-qc-api
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	deletionsTotal     *prometheus.CounterVec
	auditPublishErrors prometheus.Counter
}

// NewMetrics creates and registers the metrics on registry
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revit_qc_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"}, // path is the route pattern, not the raw URL
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revit_qc_http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.deletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revit_qc_deletions_total",
			Help: "Total number of committed deletions",
		},
		[]string{"entity"}, // check_run, model, clash_file
	)

	m.auditPublishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revit_qc_audit_publish_errors_total",
			Help: "Total number of deletion events that could not be published",
		},
	)
}

func (m *Metrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.deletionsTotal,
		m.auditPublishErrors,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.getCollectors() {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.getCollectors() {
		c.Collect(ch)
	}
}

// RecordHTTPRequest records one served request
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordDeletion records a committed delete of entity
func (m *Metrics) RecordDeletion(entity string) {
	m.deletionsTotal.WithLabelValues(entity).Inc()
}

// RecordAuditPublishError records a deletion event lost on the way to Redis
func (m *Metrics) RecordAuditPublishError() {
	m.auditPublishErrors.Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
