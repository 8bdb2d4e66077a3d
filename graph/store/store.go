// Package store provides durable checkpoint persistence for workflow sessions.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested session or checkpoint does not exist.
var ErrNotFound = errors.New("not found")

// Checkpoint is an immutable snapshot of session state persisted after every
// stage transition.
//
// Seq increases strictly within a session; the checkpoint with the highest
// Seq is the durable truth for that session. Older checkpoints are retained
// for audit but are not required for correctness.
//
// NextNode identifies the node the engine should enter when the session is
// next driven: the node after the one that produced this snapshot, or the
// suspended node itself when the session is paused. Empty for terminal
// checkpoints.
//
// Type parameter S is the persisted state type (must be JSON-serializable).
type Checkpoint[S any] struct {
	// SessionID is the sole lookup key for checkpoints.
	SessionID string `json:"session_id"`

	// Seq is the checkpoint sequence number, strictly increasing per session.
	Seq int `json:"seq"`

	// NextNode is the node to resume into, or "" for terminal checkpoints.
	NextNode string `json:"next_node"`

	// State is the full session state at checkpoint time.
	State S `json:"state"`

	// CreatedAt records when this checkpoint was written.
	CreatedAt time.Time `json:"created_at"`
}

// Store persists session checkpoints.
//
// It is a passive durable mirror: all state mutation happens in the engine,
// the store only records snapshots. Implementations must make Put atomic:
// a reader never observes a partially written checkpoint. A failed Put
// leaves the previously stored checkpoint authoritative, so the engine can
// always retry the whole invocation safely.
//
// Implementations in this package:
//   - MemStore: in-memory, for tests and short-lived workflows
//   - SQLiteStore: single-file database, zero-setup local persistence
//   - MySQLStore: shared relational persistence
//   - PostgresStore: shared relational persistence
//
// Type parameter S is the state type to persist.
type Store[S any] interface {
	// Put durably persists a new checkpoint. Writing the same
	// (session, seq) pair twice replaces the row, which keeps retried
	// invocations idempotent.
	Put(ctx context.Context, cp Checkpoint[S]) error

	// GetLatest returns the checkpoint with the highest Seq for the
	// session, or ErrNotFound if the session has never run.
	GetLatest(ctx context.Context, sessionID string) (Checkpoint[S], error)

	// Get returns a specific historical checkpoint if retained, or
	// ErrNotFound.
	Get(ctx context.Context, sessionID string, seq int) (Checkpoint[S], error)
}
