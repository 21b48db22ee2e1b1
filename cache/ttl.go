// Package cache provides the bounded in-memory caches used by the
// planning layer.
package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Default configuration constants.
const (
	// DefaultCapacity is the default maximum number of entries.
	DefaultCapacity = 100

	// DefaultTTL is the default entry lifetime.
	DefaultTTL = 30 * time.Minute

	// evictDivisor controls how much of the cache is dropped when it
	// fills up: the oldest 1/evictDivisor of entries (by creation time)
	// are removed to make room.
	evictDivisor = 4
)

// Stats holds cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64
}

// TTLCache is a bounded, thread-safe cache whose entries expire after a
// fixed TTL. When the cache is full, the oldest quarter of entries by
// creation time is evicted before a new entry is inserted.
//
// Unlike an LRU, eviction order is driven purely by entry age: a
// frequently used entry still expires at its TTL and is still evicted
// under capacity pressure if it is among the oldest. Use counts are
// tracked per entry for observability.
type TTLCache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*ttlEntry[V]
	capacity int
	ttl      time.Duration

	// now is the clock, injectable for tests.
	now func() time.Time

	// Statistics (atomic for zero-allocation reads)
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// ttlEntry holds a cached value with its lifecycle bookkeeping.
type ttlEntry[V any] struct {
	value     V
	createdAt time.Time
	useCount  int
}

// NewTTL creates a cache with the given capacity and entry lifetime.
// Non-positive arguments select the defaults.
func NewTTL[K comparable, V any](capacity int, ttl time.Duration) *TTLCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[K, V]{
		entries:  make(map[K]*ttlEntry[V]),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the cache's time source. Tests use this to drive
// TTL expiry deterministically.
func (c *TTLCache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get retrieves a live cached value by key, incrementing its use count.
// The second return value is the entry's use count after the hit.
// Expired entries are removed and reported as misses.
func (c *TTLCache[K, V]) Get(key K) (V, int, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Sub(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.evictions.Add(1)
		ok = false
	}
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, 0, false
	}
	entry.useCount++
	value := entry.value
	uses := entry.useCount
	c.mu.Unlock()

	c.hits.Add(1)
	return value, uses, true
}

// Set stores a value. If the cache is full, the oldest quarter of
// entries is evicted first. Overwriting an existing key resets its
// creation time and use count.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictOldestLocked(c.capacity / evictDivisor)
	}
	c.entries[key] = &ttlEntry[V]{value: value, createdAt: c.now()}
}

// evictOldestLocked removes the n oldest entries by creation time.
// Caller must hold c.mu.
func (c *TTLCache[K, V]) evictOldestLocked(n int) {
	if n <= 0 {
		n = 1
	}
	type aged struct {
		key K
		at  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, at: e.createdAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].at.Before(all[j].at) })
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(c.entries, a.key)
		c.evictions.Add(1)
	}
}

// Delete removes an entry. Returns true if the entry existed.
func (c *TTLCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes all entries.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]*ttlEntry[V])
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet expired.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the configured capacity.
func (c *TTLCache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns current cache statistics.
func (c *TTLCache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Len:       c.Len(),
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
	}
}
