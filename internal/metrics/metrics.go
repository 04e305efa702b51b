// Package metrics exposes Prometheus collectors for the memory proxy.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memproxy"

// Inference outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeUnavailable   = "unavailable"
	OutcomeRejected      = "rejected"
	OutcomeMisconfigured = "misconfigured"
)

// Sweep results.
const (
	SweepSuccess = "success"
	SweepError   = "error"
	SweepSkipped = "skipped"
)

// Metrics holds the proxy's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated   prometheus.Counter
	turnsPersisted    *prometheus.CounterVec // role
	inferenceRequests *prometheus.CounterVec // outcome
	inferenceDuration prometheus.Histogram
	policyBlocked     prometheus.Counter
	sweepRuns         *prometheus.CounterVec // result
	sweptSessions     prometheus.Counter
	sweepDuration     prometheus.Histogram
}

// New creates the collectors on a private registry, together with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created by the context manager.",
		}),
		turnsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_persisted_total",
			Help:      "Messages written to the store, by role.",
		}, []string{"role"}),
		inferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      "Inference backend calls, by outcome.",
		}, []string{"outcome"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Inference backend call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		policyBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_blocked_total",
			Help:      "Chat requests denied by the admission policy.",
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_sweeps_total",
			Help:      "Retention sweeps, by result.",
		}, []string{"result"}),
		sweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_swept_sessions_total",
			Help:      "Sessions deleted by retention sweeps.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retention_sweep_duration_seconds",
			Help:      "Retention sweep latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsCreated,
		m.turnsPersisted,
		m.inferenceRequests,
		m.inferenceDuration,
		m.policyBlocked,
		m.sweepRuns,
		m.sweptSessions,
		m.sweepDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SessionCreated counts a newly created session.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// TurnPersisted counts a stored message.
func (m *Metrics) TurnPersisted(role string) {
	if m == nil {
		return
	}
	m.turnsPersisted.WithLabelValues(role).Inc()
}

// RecordInference records one backend call.
func (m *Metrics) RecordInference(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.inferenceRequests.WithLabelValues(outcome).Inc()
	m.inferenceDuration.Observe(d.Seconds())
}

// PolicyBlocked counts a denied request.
func (m *Metrics) PolicyBlocked() {
	if m == nil {
		return
	}
	m.policyBlocked.Inc()
}

// RecordSweep records one sweep attempt.
func (m *Metrics) RecordSweep(result string, deleted int64, d time.Duration) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(result).Inc()
	if deleted > 0 {
		m.sweptSessions.Add(float64(deleted))
	}
	if result != SweepSkipped {
		m.sweepDuration.Observe(d.Seconds())
	}
}
