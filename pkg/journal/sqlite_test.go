package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// newTestSQLiteBackend creates a SQLite backend backed by a temp file.
func newTestSQLiteBackend(t *testing.T) (*SQLiteBackend, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	backend, err := NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:             dbPath,
		CheckpointInterval: 1 * time.Hour, // Disable checkpointing for most tests
	})
	if err != nil {
		t.Fatalf("failed to create SQLite backend: %v", err)
	}

	cleanup := func() {
		backend.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-shm")
		os.Remove(dbPath + "-wal")
	}

	return backend, cleanup
}

func TestSQLiteBackend_EmptyPath(t *testing.T) {
	_, err := NewSQLiteBackendWithConfig(SQLiteBackendConfig{})
	if err == nil {
		t.Fatal("expected error for empty database path")
	}
}

func TestSQLiteBackend_SaveAndListViolations(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	entries := []*ViolationEntry{
		makeViolation("v1", "public", "ticker", base, 150*time.Millisecond),
		makeViolation("v2", "public", "depth", base.Add(time.Second), 250*time.Millisecond),
		makeViolation("v3", "private", "balance", base.Add(2*time.Second), 350*time.Millisecond),
	}
	for _, e := range entries {
		if err := backend.SaveViolation(ctx, e); err != nil {
			t.Fatalf("SaveViolation failed: %v", err)
		}
	}

	all, err := backend.ListViolations(ctx, ViolationQuery{})
	if err != nil {
		t.Fatalf("ListViolations failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].ID != "v3" {
		t.Errorf("expected newest first, got %s", all[0].ID)
	}

	// Timestamps round-trip at millisecond precision
	if all[2].Time.UnixMilli() != base.UnixMilli() {
		t.Errorf("expected time %d, got %d", base.UnixMilli(), all[2].Time.UnixMilli())
	}
	if all[2].WaitTime != 150*time.Millisecond {
		t.Errorf("expected wait 150ms, got %v", all[2].WaitTime)
	}

	private, err := backend.ListViolations(ctx, ViolationQuery{Channel: "private"})
	if err != nil {
		t.Fatalf("ListViolations failed: %v", err)
	}
	if len(private) != 1 || private[0].Endpoint != "balance" {
		t.Errorf("expected single private balance entry, got %v", private)
	}

	limited, err := backend.ListViolations(ctx, ViolationQuery{Channel: "public", Limit: 1})
	if err != nil {
		t.Fatalf("ListViolations failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "v2" {
		t.Errorf("expected only v2, got %v", limited)
	}
}

func TestSQLiteBackend_CountViolations(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	for i := 0; i < 6; i++ {
		ch := "public"
		if i >= 4 {
			ch = "private"
		}
		entry := makeViolation(fmt.Sprintf("v%d", i), ch, "ticker", base.Add(time.Duration(i)*time.Second), time.Millisecond)
		if err := backend.SaveViolation(ctx, entry); err != nil {
			t.Fatalf("SaveViolation failed: %v", err)
		}
	}

	total, err := backend.CountViolations(ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("CountViolations failed: %v", err)
	}
	if total != 6 {
		t.Errorf("expected 6 total, got %d", total)
	}

	public, err := backend.CountViolations(ctx, "public", time.Time{})
	if err != nil {
		t.Fatalf("CountViolations failed: %v", err)
	}
	if public != 4 {
		t.Errorf("expected 4 public, got %d", public)
	}

	recent, err := backend.CountViolations(ctx, "public", base.Add(1500*time.Millisecond))
	if err != nil {
		t.Fatalf("CountViolations failed: %v", err)
	}
	if recent != 2 {
		t.Errorf("expected 2 recent public, got %d", recent)
	}
}

func TestSQLiteBackend_Snapshots(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	snap := makeSnapshot("s1", "public", base, 42)
	snap.Stats.BlockedRequests = 7
	snap.Stats.CurrentTokens = 3.5
	if err := backend.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	snaps, err := backend.ListSnapshots(ctx, "public", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}

	got := snaps[0]
	if got.ID != "s1" || got.Channel != "public" {
		t.Errorf("unexpected snapshot identity: %+v", got)
	}
	if got.Stats.TotalRequests != 42 || got.Stats.BlockedRequests != 7 {
		t.Errorf("expected stats to round-trip through JSON, got %+v", got.Stats)
	}
	if got.Stats.CurrentTokens != 3.5 {
		t.Errorf("expected tokens 3.5, got %v", got.Stats.CurrentTokens)
	}
}

func TestSQLiteBackend_Prune(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	_ = backend.SaveViolation(ctx, makeViolation("old-v", "public", "ticker", old, time.Millisecond))
	_ = backend.SaveViolation(ctx, makeViolation("new-v", "public", "ticker", recent, time.Millisecond))
	_ = backend.SaveSnapshot(ctx, makeSnapshot("old-s", "public", old, 1))
	_ = backend.SaveSnapshot(ctx, makeSnapshot("new-s", "public", recent, 2))

	deleted, err := backend.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted rows, got %d", deleted)
	}

	count, err := backend.CountViolations(ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("CountViolations failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 violation left, got %d", count)
	}

	snaps, err := backend.ListSnapshots(ctx, "public", time.Time{}, 0)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].ID != "new-s" {
		t.Errorf("expected only new-s to survive, got %v", snaps)
	}
}

func TestSQLiteBackend_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "persist.db")
	defer func() {
		os.Remove(dbPath)
		os.Remove(dbPath + "-shm")
		os.Remove(dbPath + "-wal")
	}()

	ctx := context.Background()
	at := time.Now().Add(-time.Minute)

	backend, err := NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:             dbPath,
		CheckpointInterval: 1 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	if err := backend.SaveViolation(ctx, makeViolation("v1", "private", "order", at, 75*time.Millisecond)); err != nil {
		t.Fatalf("SaveViolation failed: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen the same database file and verify the entry survived
	reopened, err := NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:             dbPath,
		CheckpointInterval: 1 * time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to reopen backend: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.ListViolations(ctx, ViolationQuery{})
	if err != nil {
		t.Fatalf("ListViolations failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d", len(loaded))
	}
	if loaded[0].ID != "v1" || loaded[0].Channel != "private" || loaded[0].WaitTime != 75*time.Millisecond {
		t.Errorf("persisted entry mismatch: %+v", loaded[0])
	}
}

func TestSQLiteBackend_Validation(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	ctx := context.Background()

	if err := backend.SaveViolation(ctx, nil); err == nil {
		t.Error("expected error for nil violation")
	}
	if err := backend.SaveViolation(ctx, &ViolationEntry{ID: "x"}); err == nil {
		t.Error("expected error for empty channel")
	}
	if err := backend.SaveSnapshot(ctx, nil); err == nil {
		t.Error("expected error for nil snapshot")
	}
}

func TestSQLiteBackend_Concurrent(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	ctx := context.Background()
	const numGoroutines = 5
	const numOperations = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := 0; g < numGoroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < numOperations; i++ {
				entry := makeViolation(
					fmt.Sprintf("g%d-v%d", g, i),
					"public", "ticker", time.Now(), time.Millisecond,
				)
				if err := backend.SaveViolation(ctx, entry); err != nil {
					t.Errorf("SaveViolation failed: %v", err)
					return
				}
			}
		}(g)
	}

	wg.Wait()

	count, err := backend.CountViolations(ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("CountViolations failed: %v", err)
	}
	if count != numGoroutines*numOperations {
		t.Errorf("expected %d entries, got %d", numGoroutines*numOperations, count)
	}
}

func TestSQLiteBackend_Close(t *testing.T) {
	backend, cleanup := newTestSQLiteBackend(t)
	defer cleanup()

	if err := backend.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close must be a no-op
	if err := backend.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
