// Package metrics exposes Prometheus metrics for remote calls, rendered
// decisions and camera sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the face gate client. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Remote calls by operation and outcome (ok, validation, not_found, network, server, canceled)
	Calls *prometheus.CounterVec

	// Remote call latency by operation
	CallLatency *prometheus.HistogramVec

	// Decision zones rendered by operation
	Zones *prometheus.CounterVec

	// Camera session starts by resulting state
	CameraSessions *prometheus.CounterVec
}

// New creates a Metrics instance registered with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facegate_api_calls_total",
			Help: "Total calls to the biometric service by operation and outcome",
		}, []string{"operation", "outcome"}),

		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facegate_api_call_duration_seconds",
			Help:    "Duration of calls to the biometric service",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),

		Zones: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facegate_decision_zones_total",
			Help: "Decision zones rendered by operation",
		}, []string{"operation", "zone"}),

		CameraSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "facegate_camera_sessions_total",
			Help: "Camera session starts by resulting state",
		}, []string{"state"}),
	}
}

// ObserveCall records one remote call.
func (m *Metrics) ObserveCall(op, outcome string, d time.Duration) {
	if m != nil {
		m.Calls.WithLabelValues(op, outcome).Inc()
		m.CallLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}

// ObserveZone records a rendered decision zone.
func (m *Metrics) ObserveZone(op, zone string) {
	if m != nil {
		m.Zones.WithLabelValues(op, zone).Inc()
	}
}

// ObserveCameraStart records the state a camera session reached after Start.
func (m *Metrics) ObserveCameraStart(state string) {
	if m != nil {
		m.CameraSessions.WithLabelValues(state).Inc()
	}
}
