package geo

import (
	"sort"
	"sync"
	"time"

	"github.com/mdmc/smartlinks/internal/model"
)

// Cache defaults.
const (
	// DefaultCacheTTL is how long a resolved record stays fresh.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheMaxEntries is the cache size bound. When exceeded,
	// the oldest half of the entries is evicted in one pass.
	DefaultCacheMaxEntries = 1000
)

type cacheEntry struct {
	record    model.GeoRecord
	fetchedAt time.Time
}

// Cache is an in-process TTL cache of geolocation records keyed by IP.
// Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	clock      Clock
}

// NewCache creates a Cache. Zero ttl or maxEntries fall back to defaults;
// a nil clock falls back to the system clock.
func NewCache(ttl time.Duration, maxEntries int, clock Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
	}
}

// Get returns the cached record for ip if present and not stale.
func (c *Cache) Get(ip string) (model.GeoRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ip]
	if !ok {
		return model.GeoRecord{}, false
	}
	if c.clock.Now().Sub(entry.fetchedAt) >= c.ttl {
		return model.GeoRecord{}, false
	}
	return entry.record, true
}

// Set stores a record for ip with the current timestamp, then enforces
// the size bound by bulk-evicting the oldest half when exceeded. Entries
// that old are very likely stale anyway, so strict LRU is not worth the
// bookkeeping.
func (c *Cache) Set(ip string, record model.GeoRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[ip] = cacheEntry{record: record, fetchedAt: c.clock.Now()}

	if len(c.entries) <= c.maxEntries {
		return
	}
	c.evictOldestLocked(len(c.entries) / 2)
}

// evictOldestLocked removes the n entries with the oldest fetchedAt.
// Caller must hold mu.
func (c *Cache) evictOldestLocked(n int) {
	type aged struct {
		ip        string
		fetchedAt time.Time
	}

	all := make([]aged, 0, len(c.entries))
	for ip, entry := range c.entries {
		all = append(all, aged{ip: ip, fetchedAt: entry.fetchedAt})
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].fetchedAt.Before(all[j].fetchedAt)
	})

	if n > len(all) {
		n = len(all)
	}
	for _, entry := range all[:n] {
		delete(c.entries, entry.ip)
	}
}

// Len returns the number of entries currently held, stale or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
