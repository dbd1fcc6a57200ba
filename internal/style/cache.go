package style

import (
	"sync"
	"sync/atomic"

	"github.com/joeblew999/plat-survey/internal/filter"
)

// Cache maps a key to the descriptor built for it. Entries are never evicted
// or replaced; key cardinality is small and bounded by the data.
type Cache[K comparable] struct {
	name    string
	build   func(K) *Descriptor
	mu      sync.Mutex
	entries map[K]*Descriptor
	hits    atomic.Int64
	misses  atomic.Int64
}

// CacheStats contains cache counters.
type CacheStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
}

// NewCache creates a cache that constructs missing entries with build.
// build must be a pure function of the key.
func NewCache[K comparable](name string, build func(K) *Descriptor) *Cache[K] {
	return &Cache[K]{
		name:    name,
		build:   build,
		entries: make(map[K]*Descriptor),
	}
}

// Get returns the descriptor for key, building and storing it on first use.
func (c *Cache[K]) Get(key K) *Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.entries[key]; ok {
		c.hits.Add(1)
		return d
	}
	c.misses.Add(1)
	d := c.build(key)
	c.entries[key] = d
	return d
}

// Len returns the number of cached entries.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache[K]) Stats() CacheStats {
	return CacheStats{
		Name:    c.name,
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// NewTierCache caches household point styles by ventilation tier.
func NewTierCache() *Cache[filter.Tier] {
	return NewCache("tier", ForTier)
}

// NewRampCache caches boundary polygon styles by polygon id.
func NewRampCache(r Ramp) *Cache[int] {
	return NewCache("ramp", r.Descriptor)
}
