package authz

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// IdentityCache absorbs repeated directory lookups within a TTL window.
// Entries are keyed by subject id, bounded by a fixed capacity with LRU
// eviction, and expire after the configured TTL. Failed resolutions are
// never cached: a transient fault must not lock a user out for the TTL.
type IdentityCache struct {
	lru *expirable.LRU[string, *Identity]
	ttl time.Duration
	cap int
	sf  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats is a point-in-time snapshot for the operator surface.
type CacheStats struct {
	Size     int
	Capacity int
	TTL      time.Duration
	Hits     int64
	Misses   int64
}

// NewIdentityCache creates a cache with the given capacity and TTL.
func NewIdentityCache(capacity int, ttl time.Duration) *IdentityCache {
	return &IdentityCache{
		lru: expirable.NewLRU[string, *Identity](capacity, nil, ttl),
		ttl: ttl,
		cap: capacity,
	}
}

// GetOrResolve returns the cached identity for subjectID, or invokes resolve
// and stores the result. Concurrent misses for the same subject are
// coalesced through singleflight; the coalescing is best-effort, duplicate
// resolver calls are harmless.
func (c *IdentityCache) GetOrResolve(ctx context.Context, subjectID string, resolve func(ctx context.Context) (*Identity, error)) (*Identity, error) {
	if id, ok := c.lru.Get(subjectID); ok {
		c.hits.Add(1)
		return id, nil
	}
	c.misses.Add(1)

	result, err, _ := c.sf.Do(subjectID, func() (any, error) {
		// Another caller may have populated the entry while we queued.
		if id, ok := c.lru.Get(subjectID); ok {
			return id, nil
		}
		id, err := resolve(ctx)
		if err != nil {
			return nil, err
		}
		c.lru.Add(subjectID, id)
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Identity), nil
}

// Invalidate drops the entry for subjectID so the next request re-resolves.
// Operators call this after changing a user's tenant or permissions.
func (c *IdentityCache) Invalidate(subjectID string) bool {
	return c.lru.Remove(subjectID)
}

// InvalidateAll drops every cached identity.
func (c *IdentityCache) InvalidateAll() {
	c.lru.Purge()
}

// Stats returns a snapshot of cache state and counters.
func (c *IdentityCache) Stats() CacheStats {
	return CacheStats{
		Size:     c.lru.Len(),
		Capacity: c.cap,
		TTL:      c.ttl,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}
