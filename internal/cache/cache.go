// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache holds recent search responses keyed by query and source set.
// Entries are bounded by count with least-recently-used eviction, and each
// entry also expires at an absolute time fixed when it was stored.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/pdiddy/torrify/pkg/types"
)

const (
	DefaultCapacity = 1000
	DefaultTTL      = 15 * time.Minute
)

// Entry is one stored response. Only the Cache creates or mutates entries.
type Entry struct {
	Payload   types.SearchResponse
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stats reports cache occupancy and effectiveness.
type Stats struct {
	Size     int           `json:"size"`
	Capacity int           `json:"capacity"`
	TTL      time.Duration `json:"ttl"`
	Hits     uint64        `json:"hits"`
	Misses   uint64        `json:"misses"`
	HitRate  float64       `json:"hitRate"`
}

// Cache is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, Entry]
	capacity int
	ttl      time.Duration
	now      func() time.Time
	hits     uint64
	misses   uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock substitutes the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache holding at most capacity entries, each living for ttl
// unless Set overrides it. Non-positive values select the defaults.
func New(capacity int, ttl time.Duration, opts ...Option) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l, err := simplelru.NewLRU[string, Entry](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	c := &Cache{lru: l, capacity: capacity, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Key derives the cache key: the lowercased, trimmed query followed by the
// sorted, lowercased, comma-joined source names.
func Key(query string, sources []string) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return strings.ToLower(strings.TrimSpace(query)) + "|" + strings.Join(names, ",")
}

// Get returns the stored response with Cached set. An expired entry is
// evicted and reported as a miss. A hit refreshes recency but not expiry.
func (c *Cache) Get(query string, sources []string) (types.SearchResponse, bool) {
	key := Key(query, sources)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return types.SearchResponse{}, false
	}
	if !c.now().Before(e.ExpiresAt) {
		c.lru.Remove(key)
		c.misses++
		return types.SearchResponse{}, false
	}
	c.hits++

	resp := e.Payload.Clone()
	resp.Cached = true
	return resp, true
}

// Set stores resp under (query, sources). A non-positive ttl uses the
// cache default. The stored copy always has Cached cleared.
func (c *Cache) Set(query string, sources []string, resp types.SearchResponse, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	payload := resp.Clone()
	payload.Cached = false

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.lru.Add(Key(query, sources), Entry{
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// Delete removes one entry and reports whether it was present.
func (c *Cache) Delete(query string, sources []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(Key(query, sources))
}

// Purge drops every entry and resets the hit counters.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.hits, c.misses = 0, 0
}

// Len is the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// EvictExpired removes every expired entry and returns how many it removed.
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, k := range c.lru.Keys() {
		e, ok := c.lru.Peek(k)
		if ok && !now.Before(e.ExpiresAt) {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:     c.lru.Len(),
		Capacity: c.capacity,
		TTL:      c.ttl,
		Hits:     c.hits,
		Misses:   c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
