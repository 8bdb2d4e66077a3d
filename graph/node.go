package graph

import "context"

// Node represents a processing stage in the workflow graph.
// It receives state of type S, performs computation, and returns a NodeResult.
//
// Each node can:
//   - Access the current state
//   - Perform computation (call LLMs, retrieval, or custom logic)
//   - Return state modifications via Delta
//   - Suspend the session via Interrupt (human-in-the-loop)
//   - Report errors
//
// Routing between nodes is declared on the graph (edges and routers), not
// returned by the node.
//
// The resume argument is non-nil exactly once: when the engine re-invokes a
// suspended node after Resume. The node consumes it instead of requesting
// input again. On every other invocation it is nil.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	Run(ctx context.Context, state S, resume any) NodeResult[S]
}

// NodeResult represents the output of a node execution.
//
// Exactly one of the three outcomes applies:
//   - Delta: partial state update to be merged via the reducer (success)
//   - Interrupt: suspend the session and surface a question to the caller
//   - Err: the stage failed
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node.
	// It is merged with the current state using the configured reducer.
	Delta S

	// Interrupt, when non-nil, pauses the session at this node. The engine
	// persists the descriptor and returns it to the caller; the session
	// stays suspended until Resume is called.
	Interrupt *Interrupt

	// Err contains any error that occurred during node execution.
	// Essential stages fail the session; optional stages degrade it.
	Err error
}

// Interrupt describes a suspension point awaiting external input.
//
// The descriptor is persisted with the paused checkpoint, so a process that
// restarts can still present the question to a human. Payload must be
// JSON-serializable; after a restart it round-trips through JSON, so typed
// payloads come back as map[string]any.
type Interrupt struct {
	// Node is the id of the suspended node. Set by the engine.
	Node string `json:"node"`

	// Payload carries whatever the node wants to show the caller: a
	// question, a draft awaiting review, suggested values.
	Payload any `json:"payload,omitempty"`
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	draft := graph.NodeFunc[MyState](func(ctx context.Context, s MyState, _ any) graph.NodeResult[MyState] {
//	    return graph.NodeResult[MyState]{Delta: MyState{Draft: "..."}}
//	})
type NodeFunc[S any] func(ctx context.Context, state S, resume any) NodeResult[S]

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S, resume any) NodeResult[S] {
	return f(ctx, state, resume)
}
