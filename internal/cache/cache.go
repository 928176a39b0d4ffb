// Package cache provides the bounded key→value maps shared by the route
// resolver and placeholder engine. Eviction is oldest-inserted first,
// mirroring the capped-map behavior the engine relies on for memory
// bounds.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

const (
	// DefaultMaxEntries caps each individual cache.
	DefaultMaxEntries = 1000
	// CombinedSoftCap triggers the shared proportional trim pass.
	CombinedSoftCap = 3000
	// maxKeyBytes is the raw-key size above which keys are replaced by a
	// fixed-length content hash, so memory and hit/miss semantics do not
	// depend on key size.
	maxKeyBytes = 10 * 1024
)

// Cache is a single bounded map with insertion-order eviction.
type Cache struct {
	mu      sync.Mutex
	max     int
	entries map[string]any
	order   []string
}

// New returns a cache capped at max entries. max <= 0 falls back to
// DefaultMaxEntries.
func New(max int) *Cache {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Cache{max: max, entries: make(map[string]any)}
}

// normalizeKey replaces oversized keys by a content hash. Hash collisions
// are accepted as a stale-cache risk.
func normalizeKey(key string) string {
	if len(key) <= maxKeyBytes {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return "h:" + hex.EncodeToString(sum[:])
}

// Get looks up a value. O(1).
func (c *Cache) Get(key string) (any, bool) {
	key = normalizeKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set stores a value and trims back to the cap. O(1) amortized.
func (c *Cache) Set(key string, v any) {
	key = normalizeKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	c.trimLocked(c.max)
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	c.order = nil
}

// Trim evicts oldest-inserted entries until the cache holds at most
// limit entries.
func (c *Cache) Trim(limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trimLocked(limit)
}

func (c *Cache) trimLocked(limit int) {
	if limit < 0 {
		limit = 0
	}
	for len(c.entries) > limit && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Manager owns the three engine caches and the shared trim pass.
type Manager struct {
	Routes       *Cache
	Paths        *Cache
	Placeholders *Cache
	softCap      int
}

// NewManager builds the three caches at the default per-cache cap.
func NewManager() *Manager {
	return &Manager{
		Routes:       New(DefaultMaxEntries),
		Paths:        New(DefaultMaxEntries),
		Placeholders: New(DefaultMaxEntries),
		softCap:      CombinedSoftCap,
	}
}

// TrimAllIfNeeded is a no-op while the combined size is at or under the
// soft cap; above it, each cache is trimmed proportionally to its share
// of the total so the combined size lands back at the cap.
func (m *Manager) TrimAllIfNeeded() {
	caches := []*Cache{m.Routes, m.Paths, m.Placeholders}
	total := 0
	for _, c := range caches {
		total += c.Len()
	}
	if total <= m.softCap {
		return
	}
	over := total - m.softCap
	for _, c := range caches {
		n := c.Len()
		if n == 0 {
			continue
		}
		// Round the cache's share of the overage up so the pass always
		// converges in one sweep.
		evict := (over*n + total - 1) / total
		c.Trim(n - evict)
	}
}

// CombinedLen returns the total entry count across the three caches.
func (m *Manager) CombinedLen() int {
	return m.Routes.Len() + m.Paths.Len() + m.Placeholders.Len()
}
