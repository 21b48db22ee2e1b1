package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestNewTTL(t *testing.T) {
	c := NewTTL[string, int](50, time.Minute)
	if c == nil {
		t.Fatal("NewTTL returned nil")
	}
	if c.Capacity() != 50 {
		t.Errorf("Capacity = %d, want 50", c.Capacity())
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestTTLDefaults(t *testing.T) {
	c := NewTTL[string, int](0, 0)
	if c.Capacity() != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", c.Capacity(), DefaultCapacity)
	}
	if c.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}

func TestTTLGetSet(t *testing.T) {
	c := NewTTL[string, int](10, time.Minute)

	c.Set("key1", 42)

	val, uses, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key1 to exist")
	}
	if val != 42 {
		t.Errorf("value = %d, want 42", val)
	}
	if uses != 1 {
		t.Errorf("useCount = %d, want 1", uses)
	}

	_, uses, _ = c.Get("key1")
	if uses != 2 {
		t.Errorf("useCount = %d, want 2 after second hit", uses)
	}

	if _, _, ok := c.Get("nonexistent"); ok {
		t.Error("expected nonexistent key to miss")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewTTL[string, int](10, time.Minute)

	now := time.Unix(1000, 0)
	c.SetClock(func() time.Time { return now })

	c.Set("key1", 1)
	if _, _, ok := c.Get("key1"); !ok {
		t.Fatal("expected fresh entry to hit")
	}

	now = now.Add(61 * time.Second)
	if _, _, ok := c.Get("key1"); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after expiry eviction", c.Len())
	}
}

func TestTTLCapacityBound(t *testing.T) {
	c := NewTTL[string, int](100, time.Hour)

	now := time.Unix(1000, 0)
	c.SetClock(func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	})

	for i := 0; i < 101; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	if c.Len() > 100 {
		t.Errorf("Len = %d, want <= 100 after 101 inserts", c.Len())
	}

	// The oldest quarter was dropped; the newest entry survives.
	if _, _, ok := c.Get("key-100"); !ok {
		t.Error("newest entry missing after eviction")
	}
	if _, _, ok := c.Get("key-0"); ok {
		t.Error("oldest entry survived eviction")
	}
}

func TestTTLOverwriteDoesNotEvict(t *testing.T) {
	c := NewTTL[string, int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3) // overwrite must not trigger capacity eviction

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	val, _, _ := c.Get("a")
	if val != 3 {
		t.Errorf("a = %d, want 3", val)
	}
}

func TestTTLDeleteClear(t *testing.T) {
	c := NewTTL[string, int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("Delete(a) twice = true, want false")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", c.Len())
	}
}

func TestTTLStats(t *testing.T) {
	c := NewTTL[string, int](10, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 {
		t.Errorf("Hits = %d, want 2", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Errorf("HitRate = %v, want ~2/3", s.HitRate)
	}
}
