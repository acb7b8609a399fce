// Package cache provides the in-process content cache: a string-keyed map
// whose entries expire a fixed time after they were stored.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/intellicloud/icweb/pkg/metrics"
	"github.com/intellicloud/icweb/pkg/models"
)

// DefaultTTL is how long a stored value stays readable.
const DefaultTTL = 5 * time.Minute

// Cache memoizes content lookups with a fixed TTL. Expired entries are
// removed lazily by the read that finds them; nothing sweeps in the
// background.
type Cache struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
	ttl     time.Duration
	now     func() time.Time

	// bumped by Clear (epoch) and ClearKey (gens) so fetches that started
	// before an invalidation cannot store their result afterwards
	epoch uint64
	gens  map[string]uint64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL for every key. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]models.CacheEntry),
		gens:    make(map[string]uint64),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the value stored under key if it has not expired. A stale
// entry is deleted before reporting the miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false
	}
	if c.now().Sub(entry.StoredAt) >= c.ttl {
		delete(c.entries, key)
		c.evictions.Add(1)
		metrics.CacheEvictions.Inc()
		c.miss()
		return nil, false
	}

	c.hits.Add(1)
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return entry.Value, true
}

func (c *Cache) miss() {
	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues("miss").Inc()
}

// Set stores value under key, replacing any previous entry.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = models.CacheEntry{
		Key:      key,
		Value:    value,
		StoredAt: c.now(),
	}
}

// Generation identifies the invalidation state of one key.
type Generation struct {
	epoch uint64
	key   uint64
}

// Generation returns the current generation of key. Take it before fetching
// the value to store and pass it to SetIfGeneration.
func (c *Cache) Generation(key string) Generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Generation{epoch: c.epoch, key: c.gens[key]}
}

// SetIfGeneration stores value under key only if key was not cleared since
// gen was taken. It reports whether the value was stored.
func (c *Cache) SetIfGeneration(key string, value any, gen Generation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen.epoch != c.epoch || gen.key != c.gens[key] {
		return false
	}
	c.entries[key] = models.CacheEntry{
		Key:      key,
		Value:    value,
		StoredAt: c.now(),
	}
	return true
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]models.CacheEntry)
	c.epoch++
}

// ClearKey removes the entry for key, if any.
func (c *Cache) ClearKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gens[key]++
}

// Stats returns the current entry count and lookup counters. Entries that
// expired but were never read again are still counted.
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return models.CacheStats{
		Entries:   int64(n),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
