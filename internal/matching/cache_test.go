package matching

import (
	"fmt"
	"testing"
	"time"
)

func newTestCache(ttl time.Duration, maxEntries int) (*rankCache, *time.Time) {
	cache := newRankCache(ttl, maxEntries)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestCacheGetSet(t *testing.T) {
	cache, _ := newTestCache(5*time.Minute, 50)

	profiles := []*Profile{{ID: "cand-1"}, {ID: "cand-2"}}
	key := cacheKey("user-1", DefaultPreferences(), VariantControl)

	if _, ok := cache.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Set(key, profiles)

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if len(got) != 2 || got[0].ID != "cand-1" || got[1].ID != "cand-2" {
		t.Fatalf("cached order corrupted: %v", got)
	}
}

func TestCacheKeyScoping(t *testing.T) {
	prefs := DefaultPreferences()

	base := cacheKey("user-1", prefs, VariantControl)

	if cacheKey("user-1", prefs, VariantAdvanced) == base {
		t.Fatal("different variants must not share a key")
	}
	if cacheKey("user-2", prefs, VariantControl) == base {
		t.Fatal("different users must not share a key")
	}

	changed := *prefs
	changed.MaxDistance = 10
	if cacheKey("user-1", &changed, VariantControl) == base {
		t.Fatal("different preferences must not share a key")
	}

	if cacheKey("user-1", prefs, VariantControl) != base {
		t.Fatal("identical inputs must collide")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache, now := newTestCache(5*time.Minute, 50)

	key := cacheKey("user-1", DefaultPreferences(), VariantControl)
	cache.Set(key, []*Profile{{ID: "cand-1"}})

	*now = now.Add(4 * time.Minute)
	if _, ok := cache.Get(key); !ok {
		t.Fatal("entry expired before its TTL")
	}

	*now = now.Add(2 * time.Minute)
	if _, ok := cache.Get(key); ok {
		t.Fatal("entry survived past its TTL")
	}
	if cache.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", cache.Len())
	}
}

func TestCachePruneOldest(t *testing.T) {
	cache, now := newTestCache(time.Hour, 3)

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("user-%d|{}|control", i)
		cache.Set(key, []*Profile{{ID: fmt.Sprintf("cand-%d", i)}})
		*now = now.Add(time.Second)
	}

	if cache.Len() != 3 {
		t.Fatalf("expected cache pruned to 3 entries, got %d", cache.Len())
	}
	if _, ok := cache.Get("user-0|{}|control"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := cache.Get("user-3|{}|control"); !ok {
		t.Fatal("newest entry should have survived")
	}
}

func TestCachePruneExpiredFirst(t *testing.T) {
	cache, now := newTestCache(time.Minute, 2)

	cache.Set("user-0|{}|control", []*Profile{{ID: "cand-0"}})

	// Let the first entry expire, then fill past the bound
	*now = now.Add(2 * time.Minute)
	cache.Set("user-1|{}|control", []*Profile{{ID: "cand-1"}})
	*now = now.Add(time.Second)
	cache.Set("user-2|{}|control", []*Profile{{ID: "cand-2"}})
	*now = now.Add(time.Second)
	cache.Set("user-3|{}|control", []*Profile{{ID: "cand-3"}})

	// The expired entry goes first, then the oldest live one
	if _, ok := cache.Get("user-2|{}|control"); !ok {
		t.Fatal("live entry evicted while an expired one existed")
	}
	if _, ok := cache.Get("user-3|{}|control"); !ok {
		t.Fatal("newest entry should have survived")
	}
}

func TestCacheInvalidateUser(t *testing.T) {
	cache, _ := newTestCache(time.Hour, 50)

	prefs := DefaultPreferences()
	cache.Set(cacheKey("user-1", prefs, VariantControl), []*Profile{{ID: "a"}})
	cache.Set(cacheKey("user-1", prefs, VariantAdvanced), []*Profile{{ID: "b"}})
	cache.Set(cacheKey("user-2", prefs, VariantControl), []*Profile{{ID: "c"}})

	cache.InvalidateUser("user-1")

	if _, ok := cache.Get(cacheKey("user-1", prefs, VariantControl)); ok {
		t.Fatal("user-1 control entry survived invalidation")
	}
	if _, ok := cache.Get(cacheKey("user-1", prefs, VariantAdvanced)); ok {
		t.Fatal("user-1 advanced entry survived invalidation")
	}
	if _, ok := cache.Get(cacheKey("user-2", prefs, VariantControl)); !ok {
		t.Fatal("user-2 entry must not be touched")
	}
}
