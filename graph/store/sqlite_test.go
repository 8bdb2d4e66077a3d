package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore[testState] {
	t.Helper()
	st, err := NewSQLiteStore[testState](":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return st
}

func TestSQLiteStorePutGetLatest(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLiteStore(t)
	defer st.Close()

	if err := st.Put(ctx, testCheckpoint("sess-1", 1, "node-a")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	cp, err := st.GetLatest(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if cp.Seq != 1 || cp.NextNode != "node-a" {
		t.Errorf("expected seq 1 / next 'node-a', got %d / %q", cp.Seq, cp.NextNode)
	}
	if cp.State.Counter != 1 || cp.State.Data["k"] != "v" {
		t.Errorf("state did not round-trip: %+v", cp.State)
	}
	if cp.CreatedAt.IsZero() {
		t.Error("CreatedAt not persisted")
	}

	// Out-of-order writes: latest is highest seq, not last written.
	_ = st.Put(ctx, testCheckpoint("sess-1", 5, "node-e"))
	_ = st.Put(ctx, testCheckpoint("sess-1", 4, "node-d"))

	cp, err = st.GetLatest(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if cp.Seq != 5 {
		t.Errorf("expected latest seq 5, got %d", cp.Seq)
	}
}

func TestSQLiteStoreGet(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLiteStore(t)
	defer st.Close()

	_ = st.Put(ctx, testCheckpoint("sess-1", 1, "node-a"))
	_ = st.Put(ctx, testCheckpoint("sess-1", 2, "node-b"))

	cp, err := st.Get(ctx, "sess-1", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cp.Seq != 1 || cp.NextNode != "node-a" {
		t.Errorf("wrong checkpoint returned: %+v", cp)
	}

	if _, err := st.Get(ctx, "sess-1", 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown seq, got %v", err)
	}
}

func TestSQLiteStoreNotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLiteStore(t)
	defer st.Close()

	if _, err := st.GetLatest(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStoreIdempotentPut(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLiteStore(t)
	defer st.Close()

	cp := testCheckpoint("sess-1", 1, "first")
	if err := st.Put(ctx, cp); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Retried write for the same (session, seq) replaces the row.
	cp.NextNode = "second"
	cp.State.Message = "retried"
	if err := st.Put(ctx, cp); err != nil {
		t.Fatalf("retried Put failed: %v", err)
	}

	got, err := st.Get(ctx, "sess-1", 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.NextNode != "second" || got.State.Message != "retried" {
		t.Errorf("retry did not replace row: %+v", got)
	}
}

func TestSQLiteStoreSessionSeparation(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLiteStore(t)
	defer st.Close()

	_ = st.Put(ctx, testCheckpoint("sess-1", 3, "a"))
	_ = st.Put(ctx, testCheckpoint("sess-2", 7, "b"))

	cp, err := st.GetLatest(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if cp.Seq != 3 {
		t.Errorf("sess-1 latest leaked from another session: seq %d", cp.Seq)
	}
}

func TestSQLiteStoreFilePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	st, err := NewSQLiteStore[testState](path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if st.Path() != path {
		t.Errorf("Path() = %q, want %q", st.Path(), path)
	}
	if err := st.Put(ctx, testCheckpoint("sess-1", 2, "node-b")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen: the checkpoint must survive the restart.
	st2, err := NewSQLiteStore[testState](path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st2.Close()

	cp, err := st2.GetLatest(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetLatest after reopen failed: %v", err)
	}
	if cp.Seq != 2 || cp.NextNode != "node-b" {
		t.Errorf("checkpoint lost across restart: %+v", cp)
	}
}

func TestSQLiteStoreClosed(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLiteStore(t)

	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("double Close should be a no-op, got %v", err)
	}

	if err := st.Put(ctx, testCheckpoint("sess-1", 1, "node")); err == nil {
		t.Error("Put on closed store should fail")
	}
	if _, err := st.GetLatest(ctx, "sess-1"); err == nil {
		t.Error("GetLatest on closed store should fail")
	}
	if err := st.Ping(ctx); err == nil {
		t.Error("Ping on closed store should fail")
	}
}
