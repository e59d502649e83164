package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bridge layer.
type Metrics struct {
	// Engine boundary metrics
	EngineCalls    *prometheus.CounterVec
	EngineDuration *prometheus.HistogramVec
	EngineErrors   *prometheus.CounterVec

	// Workspace metrics
	GuardEntries prometheus.Counter

	// Immediate session metrics
	SessionsActive  prometheus.Gauge
	SessionsStarted prometheus.Counter

	// Dashboard HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a metrics collector registered on its own registry.
// Returning the registry keeps tests isolated from the default one.
func New() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		EngineCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tensorbridge_engine_calls_total",
				Help: "Total number of calls into the engine",
			},
			[]string{"method"},
		),
		EngineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tensorbridge_engine_call_duration_seconds",
				Help:    "Engine call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		EngineErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tensorbridge_engine_errors_total",
				Help: "Total number of failed engine calls",
			},
			[]string{"method"},
		),
		GuardEntries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tensorbridge_workspace_guard_entries_total",
				Help: "Total number of scoped workspace switches",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tensorbridge_immediate_sessions_active",
				Help: "Immediate sessions currently active",
			},
		),
		SessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tensorbridge_immediate_sessions_started_total",
				Help: "Immediate session activations",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tensorbridge_dashboard_requests_total",
				Help: "Dashboard HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tensorbridge_dashboard_request_duration_seconds",
				Help:    "Dashboard HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	return m, reg
}

// ObserveEngineCall records one engine call outcome.
func (m *Metrics) ObserveEngineCall(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.EngineCalls.WithLabelValues(method).Inc()
	m.EngineDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		m.EngineErrors.WithLabelValues(method).Inc()
	}
}
