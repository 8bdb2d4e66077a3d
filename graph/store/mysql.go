package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// It persists session checkpoints in a relational database. Designed for:
//   - Production workflows requiring persistence
//   - Deployments where multiple processes share one checkpoint database
//   - Long-running sessions that survive process restarts
//   - Audit trails (all checkpoints are retained, not just the latest)
//
// Type parameter S is the state type to persist (must be JSON-serializable).
type MySQLStore[S any] struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Example DSNs:
//
//	user:password@tcp(localhost:3306)/sessions
//	user:password@tcp(127.0.0.1:3306)/sessions?parseTime=true
//
// Security Warning:
//
//	NEVER hardcode credentials in your source code. Use environment variables:
//	    dsn := os.Getenv("MYSQL_DSN")
//	    if dsn == "" {
//	        log.Fatal("MYSQL_DSN environment variable not set")
//	    }
//	    st, err := store.NewMySQLStore[graph.Session[MyState]](dsn)
//
// The store automatically creates the session_checkpoints table and
// configures connection pooling.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore[S]{
		db:     db,
		closed: false,
	}

	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return m, nil
}

// createTables creates the required database schema if it doesn't exist.
func (m *MySQLStore[S]) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS session_checkpoints (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			next_node VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL,
			INDEX idx_session_id (session_id),
			UNIQUE KEY unique_session_seq (session_id, seq)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`

	if _, err := m.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create session_checkpoints table: %w", err)
	}

	return nil
}

// Put persists a checkpoint (implements Store interface).
//
// Writing the same (session_id, seq) pair twice replaces the row, which
// keeps retried invocations idempotent.
//
// Thread-safe for concurrent writes.
func (m *MySQLStore[S]) Put(ctx context.Context, cp Checkpoint[S]) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO session_checkpoints (session_id, seq, next_node, state, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			next_node = VALUES(next_node),
			state = VALUES(state),
			created_at = VALUES(created_at)
	`

	_, err = m.db.ExecContext(ctx, query,
		cp.SessionID, cp.Seq, cp.NextNode, stateJSON, cp.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

// GetLatest returns the checkpoint with the highest seq for the session
// (implements Store interface).
//
// Returns ErrNotFound if the session has never been checkpointed.
func (m *MySQLStore[S]) GetLatest(ctx context.Context, sessionID string) (Checkpoint[S], error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		var zero Checkpoint[S]
		return zero, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		SELECT session_id, seq, next_node, state, created_at
		FROM session_checkpoints
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`

	return scanMySQLCheckpoint[S](m.db.QueryRowContext(ctx, query, sessionID))
}

// Get returns the checkpoint with the given sequence number (implements
// Store interface).
//
// Returns ErrNotFound if no checkpoint exists for the pair.
func (m *MySQLStore[S]) Get(ctx context.Context, sessionID string, seq int) (Checkpoint[S], error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		var zero Checkpoint[S]
		return zero, fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	query := `
		SELECT session_id, seq, next_node, state, created_at
		FROM session_checkpoints
		WHERE session_id = ? AND seq = ?
	`

	return scanMySQLCheckpoint[S](m.db.QueryRowContext(ctx, query, sessionID, seq))
}

// scanMySQLCheckpoint decodes a single checkpoint row.
//
// created_at is scanned as raw bytes and parsed by hand so the store works
// with or without parseTime=true in the DSN.
func scanMySQLCheckpoint[S any](row *sql.Row) (Checkpoint[S], error) {
	var (
		cp        Checkpoint[S]
		stateJSON []byte
		createdAt []byte
	)

	err := row.Scan(&cp.SessionID, &cp.Seq, &cp.NextNode, &stateJSON, &createdAt)
	if err == sql.ErrNoRows {
		var zero Checkpoint[S]
		return zero, ErrNotFound
	}
	if err != nil {
		var zero Checkpoint[S]
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cp.CreatedAt, err = parseMySQLTime(string(createdAt))
	if err != nil {
		var zero Checkpoint[S]
		return zero, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if err := json.Unmarshal(stateJSON, &cp.State); err != nil {
		var zero Checkpoint[S]
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return cp, nil
}

// parseMySQLTime handles the driver's DATETIME text formats with and
// without fractional seconds.
func parseMySQLTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Close closes the database connection pool.
//
// After Close, all operations will return an error.
// Calling Close multiple times is safe (subsequent calls are no-ops).
func (m *MySQLStore[S]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil // Double-close is a no-op (matches sql.DB behavior)
	}

	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
//
// Useful for health checks and connection validation.
func (m *MySQLStore[S]) Ping(ctx context.Context) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	m.mu.RUnlock()

	return m.db.PingContext(ctx)
}

// Stats returns database connection pool statistics.
func (m *MySQLStore[S]) Stats() sql.DBStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.db.Stats()
}
