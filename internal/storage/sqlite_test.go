package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cursors.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_upsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "user-1", 0); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 0 {
		t.Errorf("page index = %d, want 0", got)
	}

	// Overwrite moves the cursor.
	if err := store.Upsert(ctx, "user-1", 7); err != nil {
		t.Fatalf("Upsert (overwrite): %v", err)
	}
	got, err = store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if got != 7 {
		t.Errorf("page index = %d, want 7", got)
	}
}

func TestSQLiteStore_getAbsent(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrCursorNotFound) {
		t.Errorf("expected ErrCursorNotFound, got %v", err)
	}
}

func TestSQLiteStore_delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "user-1", 3); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, ErrCursorNotFound) {
		t.Errorf("cursor should be gone, got %v", err)
	}
	// Deleting an absent cursor is fine.
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Errorf("Delete absent: %v", err)
	}
}

func TestSQLiteStore_count(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		if err := store.Upsert(ctx, u, 0); err != nil {
			t.Fatal(err)
		}
	}
	// Upserting an existing user does not grow the count.
	if err := store.Upsert(ctx, "a", 5); err != nil {
		t.Fatal(err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestSQLiteStore_perUserIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "a", 2); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, "b", 9); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, "a"); got != 2 {
		t.Errorf("a = %d, want 2", got)
	}
	if got, _ := store.Get(ctx, "b"); got != 9 {
		t.Errorf("b = %d, want 9", got)
	}
}

func TestSQLiteStore_survivesReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cursors.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, "user-1", 5); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got != 5 {
		t.Errorf("cursor did not survive reopen: got %d, want 5", got)
	}
}
