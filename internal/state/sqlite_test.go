package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_EmptyMarker(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.LastSuccess(context.Background(), "CMJ")
	if err != nil {
		t.Fatalf("LastSuccess: %v", err)
	}
	if ok {
		t.Error("expected no marker before first commit")
	}
}

func TestSQLiteStore_CommitAndRead(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mark := time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)

	if err := store.Commit(ctx, "CMJ", mark); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, ok, err := store.LastSuccess(ctx, "CMJ")
	if err != nil {
		t.Fatalf("LastSuccess: %v", err)
	}
	if !ok {
		t.Fatal("expected marker after commit")
	}
	if !got.Equal(mark) {
		t.Errorf("marker: got %v, want %v", got, mark)
	}

	// other data types stay independent
	if _, ok, _ := store.LastSuccess(ctx, "IMTP"); ok {
		t.Error("IMTP marker must not exist")
	}
}

func TestSQLiteStore_MonotonicCommit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	newer := time.Date(2024, 2, 1, 3, 0, 0, 0, time.UTC)
	older := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)

	if err := store.Commit(ctx, "HJ", newer); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := store.Commit(ctx, "HJ", older); err != nil {
		t.Fatalf("Commit older: %v", err)
	}

	got, _, err := store.LastSuccess(ctx, "HJ")
	if err != nil {
		t.Fatalf("LastSuccess: %v", err)
	}
	if !got.Equal(newer) {
		t.Errorf("marker moved backwards: got %v, want %v", got, newer)
	}
}
