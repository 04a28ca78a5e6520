package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)

	if _, ok := c.Get("missing", time.Minute); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Set("a", 1)
	got, ok := c.Get("a", time.Minute)
	if !ok || got != 1 {
		t.Fatalf("expected hit with 1, got %d (ok=%v)", got, ok)
	}

	// Overwrite refreshes the value.
	c.Set("a", 2)
	got, _ = c.Get("a", time.Minute)
	if got != 2 {
		t.Fatalf("expected 2 after overwrite, got %d", got)
	}
	if c.Size() != 1 {
		t.Fatalf("expected size 1, got %d", c.Size())
	}
}

func TestLRUCacheMaxAge(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)
	c.Set("k", "v")

	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k", time.Nanosecond); ok {
		t.Fatalf("expected stale entry to miss under tight max age")
	}
	// The same entry still serves a tolerant reader.
	if _, ok := c.Get("k", time.Minute); !ok {
		t.Fatalf("expected hit under loose max age")
	}
	// Non-positive max age accepts anything retained.
	if _, ok := c.Get("k", 0); !ok {
		t.Fatalf("expected hit with zero max age")
	}
}

func TestLRUCacheInvalidate(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("a", 1)
	c.Invalidate("a")
	if _, ok := c.Get("a", time.Minute); ok {
		t.Fatalf("expected miss after invalidate")
	}
	// Invalidating a missing key is a no-op.
	c.Invalidate("missing")
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a", time.Minute)
	c.Set("c", 3)

	if _, ok := c.Get("b", time.Minute); ok {
		t.Fatalf("expected least recently used entry to be evicted")
	}
	if _, ok := c.Get("a", time.Minute); !ok {
		t.Fatalf("recently used entry should survive")
	}
	if _, ok := c.Get("c", time.Minute); !ok {
		t.Fatalf("new entry should be present")
	}
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c := NewLRUCache[int](4, time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(5 * time.Millisecond)
	c.Set("fresh", 3)

	removed := c.CleanExpired()
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if c.Size() != 1 {
		t.Fatalf("expected 1 remaining, got %d", c.Size())
	}
	if _, ok := c.Get("fresh", time.Minute); !ok {
		t.Fatalf("fresh entry should survive cleanup")
	}
}

func TestLRUCacheStats(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	c.Get("missing", time.Minute)
	c.Set("k", "v")
	c.Get("k", time.Minute)
	c.Get("k", time.Minute)

	time.Sleep(5 * time.Millisecond)
	// A stale read under a tight max age counts as a miss.
	c.Get("k", time.Nanosecond)

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 2 {
		t.Fatalf("stats = %+v, want 2 hits and 2 misses", s)
	}
}

func TestManagerCleanup(t *testing.T) {
	c := NewLRUCache[int](4, time.Millisecond)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(2 * time.Millisecond)

	deadline := time.After(500 * time.Millisecond)
	for c.Size() > 0 {
		select {
		case <-deadline:
			t.Fatalf("cleanup never removed the expired entry")
		case <-time.After(2 * time.Millisecond):
		}
	}
	m.Stop()
}
