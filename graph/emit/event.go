// Package emit provides pluggable observability sinks for workflow execution.
package emit

// Event is one observability record from the engine.
//
// Events are best-effort: the engine emits them after persisting the
// matching checkpoint, and a lost or slow event never affects session
// correctness.
type Event struct {
	// SessionID identifies the session the event belongs to.
	SessionID string `json:"session_id"`

	// Seq is the checkpoint sequence number the event corresponds to.
	Seq int `json:"seq"`

	// Node is the stage that produced the event.
	Node string `json:"node"`

	// Msg describes what happened ("node finished", "session paused", ...).
	Msg string `json:"msg"`

	// Meta carries additional structured context.
	Meta map[string]any `json:"meta,omitempty"`
}
