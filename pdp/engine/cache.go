package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

// MemoryDecisionCache is an in-process DecisionCache. Expired entries are
// never served and are dropped lazily, on lookup or when the cache is full.
type MemoryDecisionCache struct {
	mu      sync.RWMutex
	entries map[string]pdp_model.CacheEntry
	size    int
	now     func() time.Time
}

// NewMemoryDecisionCache creates a cache holding at most size entries;
// size <= 0 means unbounded.
func NewMemoryDecisionCache(size int) *MemoryDecisionCache {
	return NewMemoryDecisionCacheWithClock(size, time.Now)
}

func NewMemoryDecisionCacheWithClock(size int, now func() time.Time) *MemoryDecisionCache {
	return &MemoryDecisionCache{
		entries: make(map[string]pdp_model.CacheEntry),
		size:    size,
		now:     now,
	}
}

func (c *MemoryDecisionCache) Lookup(_ context.Context, key string) (*pdp_model.AccessDecision, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !entry.Servable(now) {
		c.mu.Lock()
		// Re-check: a concurrent Store may have refreshed the entry.
		if current, ok := c.entries[key]; ok && !current.Servable(now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.Decision.Clone(), true
}

func (c *MemoryDecisionCache) Store(_ context.Context, key string, decision *pdp_model.AccessDecision, ttl time.Duration) {
	if decision == nil {
		return
	}
	now := c.now()
	entry := pdp_model.CacheEntry{
		Decision:  *decision.Clone(),
		ExpiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && c.size > 0 && len(c.entries) >= c.size {
		c.evictLocked(now)
	}
	c.entries[key] = entry
}

// evictLocked drops every expired entry, or one arbitrary entry if none has expired.
func (c *MemoryDecisionCache) evictLocked(now time.Time) {
	evicted := false
	for k, e := range c.entries {
		if !e.Servable(now) {
			delete(c.entries, k)
			evicted = true
		}
	}
	if evicted {
		return
	}
	for k := range c.entries {
		delete(c.entries, k)
		return
	}
}

func (c *MemoryDecisionCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]pdp_model.CacheEntry)
	c.mu.Unlock()
	return nil
}

// Stats reports servable entries only.
func (c *MemoryDecisionCache) Stats(_ context.Context) (pdp_model.CacheStats, error) {
	now := c.now()

	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if e.Servable(now) {
			keys = append(keys, k)
		}
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	return pdp_model.CacheStats{Size: len(keys), Keys: keys}, nil
}
