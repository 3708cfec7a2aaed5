// Package telemetry holds the Prometheus metrics and OpenTelemetry tracer
// shared by the analysis and dispatch packages.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const namespace = "docguard"

// Analysis outcomes recorded in docguard_analysis_total.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Tracer returns the tracer used for analysis spans.
func Tracer() trace.Tracer {
	return otel.Tracer("docguard.analysis")
}

// Metrics groups the docguard collectors.
//
// A nil *Metrics is valid and records nothing, so components can take
// an optional metrics dependency without branching.
type Metrics struct {
	analyses        *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	slotsAdded      prometheus.Counter
	slotsTombstoned prometheus.Counter
	tasksEnqueued   prometheus.Counter
	tasksCoalesced  prometheus.Counter
	taskFailures    prometheus.Counter
	queuePending    prometheus.Gauge
}

// NewMetrics registers the collectors with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_total",
			Help:      "Analysis passes by outcome (changed, unchanged, failed)",
		}, []string{"outcome"}),
		analysisLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of one analysis pass in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		slotsAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_added_total",
			Help:      "Violation slots appended by reconciliation",
		}),
		slotsTombstoned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_tombstoned_total",
			Help:      "Violation slots tombstoned by reconciliation",
		}),
		tasksEnqueued: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_enqueued_total",
			Help:      "Analysis tasks newly queued",
		}),
		tasksCoalesced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_coalesced_total",
			Help:      "Analysis tasks merged into an already pending task",
		}),
		taskFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_failures_total",
			Help:      "Asynchronous analysis tasks dropped after an error",
		}),
		queuePending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending",
			Help:      "Analysis tasks waiting for a worker",
		}),
	}
}

// ObserveAnalysis records one analysis pass.
func (m *Metrics) ObserveAnalysis(outcome string, seconds float64, added, removed int) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisLatency.Observe(seconds)
	m.slotsAdded.Add(float64(added))
	m.slotsTombstoned.Add(float64(removed))
}

// TaskQueued records an enqueue; coalesced is true when it merged into a
// pending task.
func (m *Metrics) TaskQueued(coalesced bool) {
	if m == nil {
		return
	}
	if coalesced {
		m.tasksCoalesced.Inc()
		return
	}
	m.tasksEnqueued.Inc()
}

// TaskFailed records a dropped asynchronous task.
func (m *Metrics) TaskFailed() {
	if m == nil {
		return
	}
	m.taskFailures.Inc()
}

// SetPending updates the pending queue gauge.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.queuePending.Set(float64(n))
}
