package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailgraph/mailgraph/graph/emit"
	"github.com/mailgraph/mailgraph/graph/store"
)

// Engine drives checkpointed workflow sessions through a validated graph.
//
// The Engine is the core runtime that:
//   - Executes nodes in graph order, merging deltas via the reducer
//   - Persists a checkpoint after every stage transition
//   - Suspends sessions on interrupts and resumes them later
//   - Applies the essential/optional failure policy
//   - Emits observability events and metrics
//
// A session is durable: the process can exit while a session is paused and
// a new process with the same graph and store picks it up where it stopped.
// Concurrent invocations for the same session id are the caller's problem;
// invocations for different sessions are safe in parallel.
//
// Type parameter S is the workflow state type.
//
// Example:
//
//	g, _ := builder.Build()
//	st := store.NewMemStore[graph.Session[MyState]]()
//	engine, _ := graph.New(g, reduce, st, graph.WithMaxSteps[MyState](50))
//
//	res, err := engine.Start(ctx, "sess-001", MyState{Request: "hello"})
//	if res.Interrupt != nil {
//	    // ... collect input, possibly in another process ...
//	    res, err = engine.Resume(ctx, "sess-001", answer)
//	}
type Engine[S any] struct {
	graph    *Graph[S]
	reducer  Reducer[S]
	store    store.Store[Session[S]]
	emitter  emit.Emitter
	metrics  *Metrics
	maxSteps int
}

// Result is the outcome of one Start or Resume invocation.
type Result[S any] struct {
	// Session is the session snapshot after the invocation.
	Session Session[S]

	// Interrupt is non-nil when the session paused awaiting input.
	Interrupt *Interrupt
}

// New creates an Engine for the given graph.
//
// The graph must come from Builder.Build; reducer and store are required.
func New[S any](g *Graph[S], reducer Reducer[S], st store.Store[Session[S]], opts ...Option[S]) (*Engine[S], error) {
	if g == nil {
		return nil, &GraphConfigError{Message: "graph is required"}
	}
	if reducer == nil {
		return nil, &GraphConfigError{Message: "reducer is required"}
	}
	if st == nil {
		return nil, &GraphConfigError{Message: "store is required"}
	}

	e := &Engine[S]{
		graph:    g,
		reducer:  reducer,
		store:    st,
		emitter:  emit.NewNullEmitter(),
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start drives a session forward from its durable state.
//
// Behavior by current session state:
//   - never seen: the session is created lazily and runs from the entry node
//   - running (e.g. the previous process crashed mid-flight): execution
//     continues from the last checkpointed next node
//   - paused: the stored interrupt is returned without executing anything;
//     use Resume to supply the awaited input
//   - completed or failed: ErrSessionTerminated
//
// initial is only consulted when the session is new.
func (e *Engine[S]) Start(ctx context.Context, sessionID string, initial S) (Result[S], error) {
	if sessionID == "" {
		return Result[S]{}, fmt.Errorf("session id cannot be empty")
	}

	cp, err := e.store.GetLatest(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		sess := Session[S]{
			ID:     sessionID,
			Data:   initial,
			Status: StatusRunning,
		}
		return e.run(ctx, sess, e.graph.entry, 0, nil)
	}
	if err != nil {
		return Result[S]{}, &CheckpointError{Op: "get", Cause: err}
	}

	sess := cp.State
	switch {
	case sess.Status.Terminal():
		return Result[S]{Session: sess}, ErrSessionTerminated
	case sess.Status == StatusPaused:
		return Result[S]{Session: sess, Interrupt: sess.Pending}, nil
	}

	next := cp.NextNode
	if next == "" {
		next = e.graph.entry
	}
	return e.run(ctx, sess, next, cp.Seq, nil)
}

// Resume supplies the input a paused session is waiting for.
//
// The suspended node is re-invoked with value as its resume argument; the
// node consumes it instead of requesting input again, and execution
// continues normally from there.
//
// Returns ErrNoPendingInterrupt when the session is unknown or not paused,
// and ErrSessionTerminated when it already completed or failed.
func (e *Engine[S]) Resume(ctx context.Context, sessionID string, value any) (Result[S], error) {
	cp, err := e.store.GetLatest(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return Result[S]{}, ErrNoPendingInterrupt
	}
	if err != nil {
		return Result[S]{}, &CheckpointError{Op: "get", Cause: err}
	}

	sess := cp.State
	if sess.Status.Terminal() {
		return Result[S]{Session: sess}, ErrSessionTerminated
	}
	if sess.Status != StatusPaused || sess.Pending == nil {
		return Result[S]{Session: sess}, ErrNoPendingInterrupt
	}

	node := cp.NextNode
	sess.Pending = nil
	sess.Status = StatusRunning
	sess.appendHistory(node, OutcomeResumed, "")
	e.metrics.recordResume()

	return e.run(ctx, sess, node, cp.Seq, value)
}

// run is the step loop shared by Start and Resume.
//
// seq is the last persisted checkpoint sequence number; every persisted
// transition increments it. resume is handed to the first node only.
func (e *Engine[S]) run(ctx context.Context, sess Session[S], node string, seq int, resume any) (Result[S], error) {
	for steps := 0; ; {
		steps++
		if steps > e.maxSteps {
			return e.fail(ctx, sess, seq, node, ErrStepLimitExceeded)
		}

		select {
		case <-ctx.Done():
			// The last checkpoint stays authoritative; Start can pick the
			// session up again.
			return Result[S]{}, ctx.Err()
		default:
		}

		impl, ok := e.graph.nodes[node]
		if !ok {
			return e.fail(ctx, sess, seq, node, &GraphConfigError{Message: "node not found during execution: " + node})
		}

		started := time.Now()
		res := impl.Run(ctx, sess.Data, resume)
		resume = nil // consumed by the first node only
		latency := time.Since(started)

		if res.Interrupt != nil {
			res.Interrupt.Node = node
			sess.Pending = res.Interrupt
			sess.Status = StatusPaused
			sess.appendHistory(node, OutcomeInterrupted, "")

			seq++
			if err := e.checkpoint(ctx, sess, seq, node); err != nil {
				return Result[S]{}, err
			}
			e.metrics.recordStep(node, OutcomeInterrupted, latency)
			e.metrics.recordInterrupt(node)
			e.emit(sess.ID, seq, node, "session paused", map[string]any{"status": sess.Status})

			return Result[S]{Session: sess, Interrupt: res.Interrupt}, nil
		}

		if res.Err != nil {
			stageErr := &StageError{Node: node, Optional: e.graph.optional(node), Cause: res.Err}
			if !stageErr.Optional {
				e.metrics.recordStep(node, OutcomeFailed, latency)
				return e.fail(ctx, sess, seq, node, stageErr)
			}
			// Optional stage: degrade and move on without the delta.
			sess.appendHistory(node, OutcomeDegraded, res.Err.Error())
			e.metrics.recordStep(node, OutcomeDegraded, latency)
		} else {
			sess.Data = e.reducer(sess.Data, res.Delta)
			sess.appendHistory(node, OutcomeCompleted, "")
			e.metrics.recordStep(node, OutcomeCompleted, latency)
		}

		next, err := e.graph.next(node, sess.Data)
		if err != nil {
			return e.fail(ctx, sess, seq, node, err)
		}

		if next == End {
			sess.Status = StatusCompleted
			seq++
			if err := e.checkpoint(ctx, sess, seq, ""); err != nil {
				return Result[S]{}, err
			}
			e.metrics.recordTerminal(StatusCompleted)
			e.emit(sess.ID, seq, node, "session completed", map[string]any{"status": sess.Status})
			return Result[S]{Session: sess}, nil
		}

		seq++
		if err := e.checkpoint(ctx, sess, seq, next); err != nil {
			return Result[S]{}, err
		}
		e.emit(sess.ID, seq, node, "node finished", map[string]any{"next": next})

		node = next
	}
}

// fail marks the session failed, persists the terminal checkpoint, and
// returns cause. A checkpoint write failure takes precedence: the session
// is then still retryable from the prior checkpoint.
func (e *Engine[S]) fail(ctx context.Context, sess Session[S], seq int, node string, cause error) (Result[S], error) {
	sess.Status = StatusFailed
	sess.appendHistory(node, OutcomeFailed, cause.Error())

	seq++
	if err := e.checkpoint(ctx, sess, seq, ""); err != nil {
		return Result[S]{}, err
	}
	e.metrics.recordTerminal(StatusFailed)
	e.emit(sess.ID, seq, node, "session failed", map[string]any{"error": cause.Error()})

	return Result[S]{Session: sess}, cause
}

// checkpoint persists the session snapshot as sequence seq.
func (e *Engine[S]) checkpoint(ctx context.Context, sess Session[S], seq int, next string) error {
	cp := store.Checkpoint[Session[S]]{
		SessionID: sess.ID,
		Seq:       seq,
		NextNode:  next,
		State:     sess,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.Put(ctx, cp); err != nil {
		e.metrics.recordCheckpointFailure()
		return &CheckpointError{Op: "put", Cause: err}
	}
	return nil
}

// emit sends a best-effort observability event. Never affects correctness.
func (e *Engine[S]) emit(sessionID string, seq int, node, msg string, meta map[string]any) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(emit.Event{
		SessionID: sessionID,
		Seq:       seq,
		Node:      node,
		Msg:       msg,
		Meta:      meta,
	})
}
