package graph

import "github.com/mailgraph/mailgraph/graph/emit"

// defaultMaxSteps bounds a single invocation when WithMaxSteps is not given.
// Generous for linear workflows; a session that hits it is looping.
const defaultMaxSteps = 100

// Option configures an Engine at construction time.
type Option[S any] func(*Engine[S])

// WithMaxSteps sets the per-invocation step ceiling. Exceeding it marks the
// session failed and returns ErrStepLimitExceeded. Zero or negative values
// are ignored.
func WithMaxSteps[S any](n int) Option[S] {
	return func(e *Engine[S]) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithEmitter sets the observability event sink. Defaults to emit.NullEmitter.
func WithEmitter[S any](em emit.Emitter) Option[S] {
	return func(e *Engine[S]) {
		if em != nil {
			e.emitter = em
		}
	}
}

// WithMetrics attaches Prometheus collectors for engine execution.
func WithMetrics[S any](m *Metrics) Option[S] {
	return func(e *Engine[S]) {
		e.metrics = m
	}
}
