package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// Designed for testing and for workflows that do not need to survive a
// process restart. Checkpoints are deep-copied on the way in and out via a
// JSON round-trip, so callers can never alias stored state; that matches
// the isolation a database-backed store gives for free.
//
// Thread-safe for concurrent access across sessions.
//
// Type parameter S is the state type to persist.
type MemStore[S any] struct {
	mu          sync.RWMutex
	checkpoints map[string][]Checkpoint[S] // sessionID -> checkpoints, append order
}

// NewMemStore creates a new in-memory store.
//
// Example:
//
//	st := store.NewMemStore[graph.Session[MyState]]()
//	engine := graph.New(g, reducer, st)
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		checkpoints: make(map[string][]Checkpoint[S]),
	}
}

// Put persists a checkpoint, replacing any existing checkpoint with the same
// sequence number.
func (m *MemStore[S]) Put(_ context.Context, cp Checkpoint[S]) error {
	copied, err := deepCopy(cp)
	if err != nil {
		return fmt.Errorf("failed to copy checkpoint: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cps := m.checkpoints[cp.SessionID]
	for i := range cps {
		if cps[i].Seq == cp.Seq {
			cps[i] = copied
			return nil
		}
	}
	m.checkpoints[cp.SessionID] = append(cps, copied)
	return nil
}

// GetLatest returns the checkpoint with the highest Seq for the session.
//
// Handles out-of-order Put calls correctly.
func (m *MemStore[S]) GetLatest(_ context.Context, sessionID string) (Checkpoint[S], error) {
	m.mu.RLock()
	cps, exists := m.checkpoints[sessionID]
	if !exists || len(cps) == 0 {
		m.mu.RUnlock()
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}

	latest := cps[0]
	for _, cp := range cps[1:] {
		if cp.Seq > latest.Seq {
			latest = cp
		}
	}
	m.mu.RUnlock()

	return deepCopy(latest)
}

// Get returns the checkpoint with the given sequence number.
func (m *MemStore[S]) Get(_ context.Context, sessionID string, seq int) (Checkpoint[S], error) {
	m.mu.RLock()
	var found *Checkpoint[S]
	for i := range m.checkpoints[sessionID] {
		if m.checkpoints[sessionID][i].Seq == seq {
			found = &m.checkpoints[sessionID][i]
			break
		}
	}
	if found == nil {
		m.mu.RUnlock()
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}
	cp := *found
	m.mu.RUnlock()

	return deepCopy(cp)
}

// deepCopy clones a checkpoint through a JSON round-trip.
//
// Works for any state type with exported, JSON-serializable fields. Slices
// and maps inside the state are copied, not shared.
func deepCopy[S any](cp Checkpoint[S]) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	data, err := json.Marshal(cp)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	var copied Checkpoint[S]
	if err := json.Unmarshal(data, &copied); err != nil {
		return zero, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return copied, nil
}
