package graph

import (
	"errors"
	"fmt"
)

// ErrStepLimitExceeded is returned when a single invocation executes more
// steps than the configured ceiling. It indicates a routing defect (a cycle
// that never reaches the terminal marker), so the session is marked failed
// rather than left retryable.
var ErrStepLimitExceeded = errors.New("step limit exceeded")

// ErrSessionTerminated is returned when Start or Resume is called on a
// session that already completed or failed. Terminal states are final.
var ErrSessionTerminated = errors.New("session already terminated")

// ErrNoPendingInterrupt is returned when Resume is called on a session that
// is not suspended: unknown id, still running, or never interrupted.
var ErrNoPendingInterrupt = errors.New("no pending interrupt")

// GraphConfigError reports an invalid graph definition.
//
// Build returns it for structural violations (unknown targets, unreachable
// nodes, missing entry). The engine returns it at runtime when a router
// picks a node outside its declared candidate set, which cannot be proven
// at build time for an arbitrary function.
type GraphConfigError struct {
	Message string
}

func (e *GraphConfigError) Error() string {
	return "graph config: " + e.Message
}

// StageError reports a node failure during execution.
//
// Optional reflects how the failing stage was registered: optional stages
// degrade the session and execution continues, essential stages mark the
// session failed.
type StageError struct {
	Node     string
	Optional bool
	Cause    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Node, e.Cause)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *StageError) Unwrap() error {
	return e.Cause
}

// CheckpointError reports a checkpoint store failure.
//
// The previously persisted checkpoint remains authoritative, so the caller
// can retry the whole invocation safely.
type CheckpointError struct {
	Op    string // "put", "get"
	Cause error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *CheckpointError) Unwrap() error {
	return e.Cause
}
