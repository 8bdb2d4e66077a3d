package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It persists session checkpoints in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process workflows
//   - Local workflows that must survive process restarts
//
// SQLiteStore uses WAL mode so readers don't block the writer.
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type SQLiteStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location:
//   - "./sessions.db" - file in current directory
//   - "/tmp/sessions.db" - absolute path
//   - ":memory:" - in-memory database (data lost on close)
//
// The store automatically:
//   - Creates the database file if it doesn't exist
//   - Creates the session_checkpoints table
//   - Enables WAL mode and a 5-second busy timeout
//
// Example:
//
//	st, err := store.NewSQLiteStore[graph.Session[MyState]]("./sessions.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close() // Ignore close error when returning pragma error
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore[S]{
		db:     db,
		closed: false,
		path:   path,
	}

	if err := s.createTables(ctx); err != nil {
		_ = db.Close() // Ignore close error when returning table creation error
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required database schema if it doesn't exist.
func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS session_checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			next_node TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE(session_id, seq)
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create session_checkpoints table: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON session_checkpoints(session_id)"); err != nil {
		return fmt.Errorf("failed to create idx_checkpoints_session: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_checkpoints_session_seq ON session_checkpoints(session_id, seq)"); err != nil {
		return fmt.Errorf("failed to create idx_checkpoints_session_seq: %w", err)
	}

	return nil
}

// Put persists a checkpoint (implements Store interface).
//
// Writing the same (session_id, seq) pair twice replaces the row, which
// keeps retried invocations idempotent.
//
// Thread-safe for concurrent writes.
func (s *SQLiteStore[S]) Put(ctx context.Context, cp Checkpoint[S]) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO session_checkpoints (session_id, seq, next_node, state, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO UPDATE SET
			next_node = excluded.next_node,
			state = excluded.state,
			created_at = excluded.created_at
	`

	_, err = s.db.ExecContext(ctx, query,
		cp.SessionID, cp.Seq, cp.NextNode, string(stateJSON),
		cp.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// GetLatest returns the checkpoint with the highest seq for the session
// (implements Store interface).
//
// Returns ErrNotFound if the session has never been checkpointed.
func (s *SQLiteStore[S]) GetLatest(ctx context.Context, sessionID string) (Checkpoint[S], error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		var zero Checkpoint[S]
		return zero, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		SELECT session_id, seq, next_node, state, created_at
		FROM session_checkpoints
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`

	return s.scanCheckpoint(s.db.QueryRowContext(ctx, query, sessionID))
}

// Get returns the checkpoint with the given sequence number (implements
// Store interface).
//
// Returns ErrNotFound if no checkpoint exists for the pair.
func (s *SQLiteStore[S]) Get(ctx context.Context, sessionID string, seq int) (Checkpoint[S], error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		var zero Checkpoint[S]
		return zero, fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	query := `
		SELECT session_id, seq, next_node, state, created_at
		FROM session_checkpoints
		WHERE session_id = ? AND seq = ?
	`

	return s.scanCheckpoint(s.db.QueryRowContext(ctx, query, sessionID, seq))
}

// scanCheckpoint decodes a single checkpoint row.
func (s *SQLiteStore[S]) scanCheckpoint(row *sql.Row) (Checkpoint[S], error) {
	var (
		cp           Checkpoint[S]
		stateJSON    string
		createdAtStr string
	)

	err := row.Scan(&cp.SessionID, &cp.Seq, &cp.NextNode, &stateJSON, &createdAtStr)
	if err == sql.ErrNoRows {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}
	if err != nil {
		var zero Checkpoint[S]
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cp.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		var zero Checkpoint[S]
		return zero, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &cp.State); err != nil {
		var zero Checkpoint[S]
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return cp, nil
}

// Close closes the database connection.
//
// After Close, all operations will return an error.
// Calling Close multiple times is safe (subsequent calls are no-ops).
func (s *SQLiteStore[S]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Double-close is a no-op
	}

	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
//
// Useful for health checks and connection validation.
func (s *SQLiteStore[S]) Ping(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore[S]) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}
