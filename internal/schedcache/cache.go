// Package schedcache is the TTL memoization layer in front of the upstream
// schedule fetch.
//
// Keys are the small set of distinct (entity, session-flag) pairs actually
// queried, so there is no size-based eviction: TTL-only retention is an
// accepted tradeoff, not an oversight. Likewise concurrent misses for the same
// key may each trigger an upstream fetch; a stampede just costs redundant
// requests and the last writer wins, which is acceptable for this workload and
// deliberately not "fixed" with request coalescing.
package schedcache

import (
	"sync"
	"time"
)

// Standard TTLs. Ordinary schedules change rarely within a day; directory
// listings (group/teacher lists) change per semester.
const (
	ScheduleTTL  = 24 * time.Hour
	DirectoryTTL = 168 * time.Hour
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a mutex-serialized TTL store with lazy expiry eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects a clock, letting tests drive TTL expiry deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached value, evicting it first if expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// Delete removes a single key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear wipes all entries. Invoked by the daily maintenance job, not by the
// comparison engine.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the current entry count (expired entries included until their
// next lookup).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
