package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	value := []byte(`{"bills":["hr1-118"]}`)
	if err := s.Put(ctx, "list|q=|chamber=both", value, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "list|q=|chamber=both")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(value) {
		t.Fatalf("round trip mismatch: %s", got)
	}
}

func TestFileStoreMissOnAbsent(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
	if _, err := s.GetStale(context.Background(), "nope"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss from GetStale, got %v", err)
	}
}

func TestFileStoreTTLExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	if err := s.Put(ctx, "k", []byte(`"v"`), 30*time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	s.now = func() time.Time { return base.Add(29 * time.Minute) }
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	s.now = func() time.Time { return base.Add(31 * time.Minute) }
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after TTL, got %v", err)
	}

	// The physical entry still exists and is readable via the stale path.
	got, err := s.GetStale(ctx, "k")
	if err != nil {
		t.Fatalf("GetStale: %v", err)
	}
	if string(got) != `"v"` {
		t.Fatalf("stale value mismatch: %s", got)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte(`1`), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte(`2`), time.Minute); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `2` {
		t.Fatalf("expected full replacement, got %s", got)
	}
}

func TestFileStoreInvalidate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte(`1`), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after invalidate, got %v", err)
	}
	// Invalidating an absent key is not an error.
	if err := s.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate absent: %v", err)
	}
}

func TestFileStoreCorruptedEntryIsMiss(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte(`1`), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := os.WriteFile(s.path("k"), []byte("{garbage"), 0o644); err != nil {
		t.Fatalf("corrupting file: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss for corrupted entry, got %v", err)
	}
	// The corrupted file was removed.
	if _, err := os.Stat(s.path("k")); !os.IsNotExist(err) {
		t.Fatalf("corrupted file not removed: %v", err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := first.Put(ctx, "k", []byte(`"persisted"`), time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	second, err := NewFileStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := second.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != `"persisted"` {
		t.Fatalf("value lost across reopen: %s", got)
	}
}

func TestFileStoreSweep(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }
	if err := s.Put(ctx, "old", []byte(`1`), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "fresh", []byte(`2`), 3*time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Past the old entry's TTL plus the retention window.
	s.now = func() time.Time { return base.Add(2 * time.Hour) }
	removed, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := s.GetStale(ctx, "old"); !errors.Is(err, ErrMiss) {
		t.Fatalf("swept entry still present: %v", err)
	}
	if _, err := s.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh entry removed by sweep: %v", err)
	}
}

func TestKeyCollisionFree(t *testing.T) {
	// Composite parts that would collide under naive concatenation.
	a := Key("list", "ab", "c")
	b := Key("list", "a", "bc")
	if a == b {
		t.Fatalf("distinct logical keys collided")
	}
	if Key("detail", "hr1-118") != Key("detail", "hr1-118") {
		t.Fatalf("key derivation not deterministic")
	}
	if filepath.Base(a) != a {
		t.Fatalf("key should be a bare hex string: %q", a)
	}
}
