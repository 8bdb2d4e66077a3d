package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

// MySQL tests require a live server. Set TEST_MYSQL_DSN to run them:
//
//	export TEST_MYSQL_DSN="user:password@tcp(localhost:3306)/test_db?parseTime=true"
//	go test -v -run TestMySQLStore ./graph/store
func mysqlTestDSN(t *testing.T) string {
	t.Helper()
	return os.Getenv("TEST_MYSQL_DSN")
}

func TestMySQLStoreConnection(t *testing.T) {
	dsn := mysqlTestDSN(t)
	if dsn == "" {
		t.Skip("Skipping MySQL tests: TEST_MYSQL_DSN not set")
	}

	t.Run("successful connection", func(t *testing.T) {
		st, err := NewMySQLStore[testState](dsn)
		if err != nil {
			t.Fatalf("NewMySQLStore failed: %v", err)
		}
		defer st.Close()

		if err := st.Ping(context.Background()); err != nil {
			t.Errorf("Ping failed: %v", err)
		}

		stats := st.Stats()
		if stats.MaxOpenConnections != 25 {
			t.Errorf("expected MaxOpenConnections 25, got %d", stats.MaxOpenConnections)
		}
	})

	t.Run("invalid DSN", func(t *testing.T) {
		_, err := NewMySQLStore[testState]("baduser:badpass@tcp(localhost:1)/nope")
		if err == nil {
			t.Error("expected connection error for unreachable server")
		}
	})
}

func TestMySQLStoreRoundTrip(t *testing.T) {
	dsn := mysqlTestDSN(t)
	if dsn == "" {
		t.Skip("Skipping MySQL tests: TEST_MYSQL_DSN not set")
	}

	ctx := context.Background()
	st, err := NewMySQLStore[testState](dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore failed: %v", err)
	}
	defer st.Close()

	sessionID := "mysql-test-" + t.Name()

	if err := st.Put(ctx, testCheckpoint(sessionID, 1, "node-a")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := st.Put(ctx, testCheckpoint(sessionID, 2, "node-b")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	cp, err := st.GetLatest(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if cp.Seq != 2 || cp.NextNode != "node-b" {
		t.Errorf("expected seq 2 / 'node-b', got %d / %q", cp.Seq, cp.NextNode)
	}
	if cp.State.Counter != 2 {
		t.Errorf("state did not round-trip: %+v", cp.State)
	}

	older, err := st.Get(ctx, sessionID, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if older.NextNode != "node-a" {
		t.Errorf("historical checkpoint wrong: %+v", older)
	}

	// Retried write replaces the row instead of erroring.
	retry := testCheckpoint(sessionID, 2, "node-b-retried")
	if err := st.Put(ctx, retry); err != nil {
		t.Fatalf("retried Put failed: %v", err)
	}
	cp, err = st.GetLatest(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if cp.NextNode != "node-b-retried" {
		t.Errorf("retry did not replace row: %+v", cp)
	}

	if _, err := st.GetLatest(ctx, "mysql-test-nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMySQLTimeParsing(t *testing.T) {
	cases := []struct {
		name  string
		value string
		ok    bool
	}{
		{"datetime with fraction", "2026-08-24 10:30:00.123456", true},
		{"datetime without fraction", "2026-08-24 10:30:00", true},
		{"rfc3339", "2026-08-24T10:30:00.123456789Z", true},
		{"garbage", "not-a-time", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseMySQLTime(tc.value)
			if tc.ok && err != nil {
				t.Errorf("parseMySQLTime(%q) failed: %v", tc.value, err)
			}
			if !tc.ok && err == nil {
				t.Errorf("parseMySQLTime(%q) should fail", tc.value)
			}
		})
	}
}
