package graph

import "time"

// Status is the lifecycle state of a session.
//
// Transitions: running -> paused -> running (resume), running -> completed,
// running -> failed. completed and failed are terminal.
type Status string

const (
	// StatusRunning means the session is executing or resumable after a crash.
	StatusRunning Status = "running"

	// StatusPaused means the session is suspended on a pending interrupt.
	StatusPaused Status = "paused"

	// StatusCompleted means the session reached the terminal marker.
	StatusCompleted Status = "completed"

	// StatusFailed means an essential stage failed or a routing defect was hit.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// HistoryEntry records one stage transition in a session's audit trail.
type HistoryEntry struct {
	// Node is the stage that executed.
	Node string `json:"node"`

	// Outcome is one of "completed", "degraded", "interrupted", "resumed",
	// "failed".
	Outcome string `json:"outcome"`

	// Detail carries the error text for degraded/failed entries.
	Detail string `json:"detail,omitempty"`

	// At records when the transition happened.
	At time.Time `json:"at"`
}

// History outcome values.
const (
	OutcomeCompleted   = "completed"
	OutcomeDegraded    = "degraded"
	OutcomeInterrupted = "interrupted"
	OutcomeResumed     = "resumed"
	OutcomeFailed      = "failed"
)

// Session is the full persisted state of one workflow execution.
//
// The session is what the checkpoint store persists: engine bookkeeping
// (status, pending interrupt, history) together with the caller's typed
// workflow state. History is append-only and never rewritten, so a session
// that degraded or was resumed carries the full story of how it got where
// it is.
//
// Type parameter S is the workflow state type.
type Session[S any] struct {
	// ID is the session identifier, the sole checkpoint lookup key.
	// Immutable after creation.
	ID string `json:"id"`

	// Data is the caller's workflow state, merged by the reducer.
	Data S `json:"data"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Pending is the interrupt awaiting a Resume, or nil.
	Pending *Interrupt `json:"pending,omitempty"`

	// History is the append-only audit trail of stage transitions.
	History []HistoryEntry `json:"history"`
}

// appendHistory records a stage transition.
func (s *Session[S]) appendHistory(node, outcome, detail string) {
	s.History = append(s.History, HistoryEntry{
		Node:    node,
		Outcome: outcome,
		Detail:  detail,
		At:      time.Now().UTC(),
	})
}
