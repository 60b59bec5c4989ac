package payroll_import

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ContentHash identifies upload bytes: SHA-256 truncated to 16 bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

type cacheEntry struct {
	result   *PreviewResult
	storedAt time.Time
}

// CacheStats is the observable state of a PreviewCache.
type CacheStats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Size       int     `json:"size"`
	MaxEntries int     `json:"maxEntries"`
	TTLSeconds float64 `json:"ttlSeconds"`
	HitRate    float64 `json:"hitRate"`
}

// ParseFunc produces a fresh PreviewResult for the cached bytes.
type ParseFunc func(ctx context.Context) (*PreviewResult, error)

// PreviewCache maps content hashes to parse results. Entries are write-once:
// they are replaced wholesale, never patched, and evicted oldest first.
type PreviewCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	hits       int64
	misses     int64
	group      singleflight.Group
	now        func() time.Time
}

func NewPreviewCache(ttl time.Duration, maxEntries int) *PreviewCache {
	return &PreviewCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// GetOrParse returns the cached result for data or runs parse. Concurrent
// misses for the same bytes share one parse. Failed parses are not cached.
func (c *PreviewCache) GetOrParse(ctx context.Context, data []byte, parse ParseFunc) (*PreviewResult, error) {
	key := ContentHash(data)
	if res, ok := c.lookup(key); ok {
		return res, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if res, ok := c.peek(key); ok {
			return res, nil
		}
		res, err := parse(ctx)
		if err != nil {
			return nil, err
		}
		res.ContentHash = key
		res.GeneratedAt = c.now()
		res.FromCache = false
		c.store(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*PreviewResult)
	return &cp, nil
}

func (c *PreviewCache) lookup(key string) (*PreviewResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.storedAt) < c.ttl {
		c.hits++
		previewCacheRequests.WithLabelValues("hit").Inc()
		cp := *e.result
		cp.FromCache = true
		return &cp, true
	}
	c.misses++
	previewCacheRequests.WithLabelValues("miss").Inc()
	return nil, false
}

// peek checks for an entry stored by a flight that finished between lookup
// and Do, without touching the counters.
func (c *PreviewCache) peek(key string) (*PreviewResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.result, true
}

func (c *PreviewCache) store(key string, res *PreviewResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{result: res, storedAt: c.now()}
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
	previewCacheSize.Set(float64(len(c.entries)))
}

func (c *PreviewCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(c.entries, oldestKey)
}

// Purge drops expired entries and returns how many were removed.
func (c *PreviewCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	previewCacheSize.Set(float64(len(c.entries)))
	return removed
}

func (c *PreviewCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Hits:       c.hits,
		Misses:     c.misses,
		Size:       len(c.entries),
		MaxEntries: c.maxEntries,
		TTLSeconds: c.ttl.Seconds(),
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
