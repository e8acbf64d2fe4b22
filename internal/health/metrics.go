package health

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records check outcomes on a dedicated registry so the health
// server never leaks unrelated process collectors.
type Metrics struct {
	registry *prometheus.Registry
	status   *prometheus.GaugeVec
	checks   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hearth_component_health",
			Help: "Component health severity (0 healthy, 1 unknown, 2 degraded, 3 critical).",
		}, []string{"component"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hearth_health_checks_total",
			Help: "Health check records produced, by component and status.",
		}, []string{"component", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hearth_health_check_duration_seconds",
			Help:    "Duration of one component health check.",
			Buckets: prometheus.DefBuckets,
		}, []string{"component"}),
	}
	m.registry.MustRegister(m.status, m.checks, m.duration)
	return m
}

func (m *Metrics) observe(record Record, elapsed time.Duration) {
	m.status.WithLabelValues(record.Component).Set(float64(severity[record.Status]))
	m.checks.WithLabelValues(record.Component, string(record.Status)).Inc()
	m.duration.WithLabelValues(record.Component).Observe(elapsed.Seconds())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
