package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/tracing"
)

// Metrics holds the HTTP and record action collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	actions  *prometheus.CounterVec
}

// NewMetrics registers the collectors plus the Go runtime and process ones.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orcidhub",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orcidhub",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orcidhub",
			Name:      "record_actions_total",
			Help:      "Record actions by section, action and outcome.",
		}, []string{"section", "action", "outcome"}),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.actions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAction counts a record action outcome ("ok", "refused", "error").
func (m *Metrics) RecordAction(section, action, outcome string) {
	m.actions.WithLabelValues(section, action, outcome).Inc()
}

// instrument wraps next with request counting, latency and a debug log line.
func (m *Metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &tracing.StatusRecorder{ResponseWriter: w}
		next(rec, r)

		status := rec.Status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		log.Debug(log.CatHTTP, "Request served",
			"method", r.Method, "path", r.URL.Path, "route", route, "status", status,
			"duration", elapsed, "request_id", tracing.RequestIDFromContext(r.Context()))
	}
}
