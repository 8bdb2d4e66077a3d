package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus collectors for engine execution.
//
// Metrics exposed (all namespaced with "mailgraph_"):
//
//   - sessions_total (counter): sessions reaching a terminal status.
//     Labels: status (completed/failed).
//   - step_latency_ms (histogram): node execution duration in milliseconds.
//     Labels: node, outcome (completed/degraded/interrupted/failed).
//   - interrupts_total (counter): sessions suspended for external input.
//     Labels: node.
//   - resumes_total (counter): Resume invocations accepted.
//   - checkpoint_failures_total (counter): failed checkpoint writes.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewMetrics(registry)
//	engine, _ := graph.New(g, reducer, st, graph.WithMetrics[MyState](metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	sessions           *prometheus.CounterVec
	stepLatency        *prometheus.HistogramVec
	interrupts         *prometheus.CounterVec
	resumes            prometheus.Counter
	checkpointFailures prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the provided
// registry. Pass prometheus.DefaultRegisterer (or nil) for the global
// registry; a private registry is recommended for isolation in tests.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailgraph",
			Name:      "sessions_total",
			Help:      "Sessions reaching a terminal status",
		}, []string{"status"}),

		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mailgraph",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}, // 1ms to 10s
		}, []string{"node", "outcome"}),

		interrupts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailgraph",
			Name:      "interrupts_total",
			Help:      "Sessions suspended awaiting external input",
		}, []string{"node"}),

		resumes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mailgraph",
			Name:      "resumes_total",
			Help:      "Resume invocations accepted for suspended sessions",
		}),

		checkpointFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mailgraph",
			Name:      "checkpoint_failures_total",
			Help:      "Checkpoint writes that failed and left the prior checkpoint authoritative",
		}),
	}
}

func (m *Metrics) recordTerminal(status Status) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) recordStep(node, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(node, outcome).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) recordInterrupt(node string) {
	if m == nil {
		return
	}
	m.interrupts.WithLabelValues(node).Inc()
}

func (m *Metrics) recordResume() {
	if m == nil {
		return
	}
	m.resumes.Inc()
}

func (m *Metrics) recordCheckpointFailure() {
	if m == nil {
		return
	}
	m.checkpointFailures.Inc()
}
