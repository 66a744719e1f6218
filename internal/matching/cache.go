// internal/matching/cache.go

package matching

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// rankCache memoizes ranked candidate lists per (user, preferences, variant)
// for a bounded TTL. Entries are evicted lazily: expired entries are swept
// once the cache grows past its soft size bound, then the oldest entries go
// until it fits again.
type rankCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	entries    map[string]*rankEntry
}

type rankEntry struct {
	profiles  []*Profile
	createdAt time.Time
}

func newRankCache(ttl time.Duration, maxEntries int) *rankCache {
	return &rankCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]*rankEntry),
	}
}

// cacheKey derives the cache key for a ranking request. Identical
// (user, preferences, variant) tuples intentionally collide.
func cacheKey(userID string, prefs *Preferences, variant Variant) string {
	serialized, err := json.Marshal(prefs)
	if err != nil {
		serialized = []byte("{}")
	}
	return fmt.Sprintf("%s|%s|%s", userID, serialized, variant)
}

// Get returns the cached order if the entry is still within its TTL
func (c *rankCache) Get(key string) ([]*Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.createdAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}

	return entry.profiles, true
}

// Set stores a ranked order and opportunistically prunes the cache
func (c *rankCache) Set(key string, profiles []*Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &rankEntry{
		profiles:  profiles,
		createdAt: c.now(),
	}

	if len(c.entries) > c.maxEntries {
		c.prune()
	}
}

// InvalidateUser drops every entry scoped to the given user, regardless of
// preferences or variant. Called when preferences are saved.
func (c *rankCache) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := userID + "|"
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Len reports the current number of entries
func (c *rankCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// prune removes expired entries first, then the oldest entries until the
// cache fits the soft bound again. Caller holds the lock.
func (c *rankCache) prune() {
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) >= c.ttl {
			delete(c.entries, key)
		}
	}

	for len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.createdAt.Before(oldest) {
				oldestKey = key
				oldest = entry.createdAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
