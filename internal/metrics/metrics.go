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

// Mutation outcomes recorded by ObserveMutation.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the service.  Each instance owns
// its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestLatency   *prometheus.HistogramVec
	PatientMutations *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
}

// New creates and registers all metrics, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patients_http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds, labeled by method, route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		PatientMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patients_mutations_total",
			Help: "Total number of create/update/delete attempts, labeled by operation and outcome",
		}, []string{"operation", "outcome"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "patients_events_published_total",
			Help: "Total number of patient events handed to the broker, labeled by type and result",
		}, []string{"type", "result"}),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.RequestLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveMutation counts one create/update/delete attempt.
func (m *Metrics) ObserveMutation(operation, outcome string) {
	m.PatientMutations.WithLabelValues(operation, outcome).Inc()
}

// ObserveEvent counts one publish attempt.
func (m *Metrics) ObserveEvent(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
