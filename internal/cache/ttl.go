// Package cache provides the in-memory TTL cache for search results and
// auxiliary lookups, and the in-flight group that collapses concurrent
// identical requests.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Default lifetimes.
const (
	SearchTTL = 30 * time.Minute
	LookupTTL = 24 * time.Hour
)

// Entry is a stored value with its bookkeeping timestamps.
type Entry[V any] struct {
	Data      V
	StoredAt  time.Time
	ExpiresAt time.Time
}

// Stats counts cache lookups.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// TTLCache is a concurrency-safe map with per-entry expiry. Expired entries
// are removed lazily on read and periodically by Sweep.
type TTLCache[V any] struct {
	mu         sync.RWMutex
	items      map[string]Entry[V]
	defaultTTL time.Duration
	now        func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewTTLCache creates a cache whose Set uses defaultTTL when given a zero ttl.
func NewTTLCache[V any](defaultTTL time.Duration, opts ...Option) *TTLCache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[V]{
		items:      make(map[string]Entry[V]),
		defaultTTL: defaultTTL,
		now:        o.now,
	}
}

// Get returns the value for key if present and unexpired. An expired entry
// is deleted and reported as a miss.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	if !now.Before(entry.ExpiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have replaced the entry.
		if current, still := c.items[key]; still && !now.Before(current.ExpiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return zero, false
	}

	c.hits.Add(1)
	return entry.Data, true
}

// Set stores value under key for ttl. A non-positive ttl uses the default.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = Entry[V]{
		Data:      value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// Delete removes key.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]Entry[V])
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Sweep removes expired entries and returns how many were removed.
func (c *TTLCache[V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.items {
		if !now.Before(entry.ExpiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Stats returns hit/miss counters and the current entry count.
func (c *TTLCache[V]) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}

// StartJanitor sweeps the cache every interval until ctx is done.
func (c *TTLCache[V]) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}
