package cache

import (
	"testing"
	"time"
)

type key struct {
	account string
	day     int
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[key, int](2, time.Minute)
	c.Set(key{"a", 1}, 1)
	c.Set(key{"b", 1}, 2)
	if _, ok := c.Get(key{"a", 1}); !ok {
		t.Fatalf("expected a to be cached")
	}
	c.Set(key{"c", 1}, 3)

	if _, ok := c.Get(key{"b", 1}); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get(key{"a", 1}); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string, string](10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Minute)
	c.Set("z", "3")

	if _, ok := c.Get("x"); ok {
		t.Fatalf("expected x to be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if v, ok := c.Get("z"); !ok || v != "3" {
		t.Fatalf("z = %q, %v", v, ok)
	}
}

func TestLRUCacheOverwriteAndPurge(t *testing.T) {
	c := NewLRUCache[string, int](0, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("a = %d, want 2", v)
	}
	c.Delete("a")
	if c.Size() != 0 {
		t.Fatalf("size after delete = %d", c.Size())
	}
	c.Set("b", 1)
	c.Purge()
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected empty cache after purge")
	}
}

func TestManagerCleanNow(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow = %d, want 1", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
