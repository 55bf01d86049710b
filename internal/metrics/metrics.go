// Package metrics exports daemon activity as Prometheus collectors.
//
// Collectors live in a private registry so tests and multiple servers in one
// process do not collide. All methods are safe on a nil [*Metrics], which
// disables collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prefix of every metric name.
const namespace = "triggerd"

// Collectors describing request handling.
type Metrics struct {
	registry    *prometheus.Registry
	responses   *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	connections prometheus.Counter
	active      prometheus.Gauge
}

// Creates the collectors and registers them, together with the standard Go
// runtime and process collectors, in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses written to clients, by response code.",
		}, []string{"code"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall-clock duration of commands that were started.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
		}, []string{"key"}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Connections accepted.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),
	}

	m.registry.MustRegister(
		m.responses,
		m.durations,
		m.connections,
		m.active,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Counts a response by its code name (see protocol.Describe).
func (m *Metrics) ObserveResponse(code string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(code).Inc()
}

// Records how long the command configured under key ran.
func (m *Metrics) ObserveCommand(key string, d time.Duration) {
	if m == nil {
		return
	}
	m.durations.WithLabelValues(key).Observe(d.Seconds())
}

// Marks a connection as accepted and returns the function that marks it
// closed.
func (m *Metrics) ConnectionOpened() (closed func()) {
	if m == nil {
		return func() {}
	}
	m.connections.Inc()
	m.active.Inc()
	return m.active.Dec
}

// Returns an HTTP handler serving the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
