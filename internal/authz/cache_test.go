package authz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testIdentity(subject, scope string) *Identity {
	return &Identity{
		SubjectID:    subject,
		TenantID:     "t1",
		PrimaryScope: scope,
		Scopes:       StringSet([]string{scope}),
		Permissions:  StringSet([]string{"read"}),
	}
}

func TestCacheResolvesOnce(t *testing.T) {
	cache := NewIdentityCache(10, time.Minute)
	var calls atomic.Int64
	resolve := func(context.Context) (*Identity, error) {
		calls.Add(1)
		return testIdentity("u1", "proj-42"), nil
	}

	first, err := cache.GetOrResolve(context.Background(), "u1", resolve)
	if err != nil {
		t.Fatalf("GetOrResolve: %v", err)
	}
	second, err := cache.GetOrResolve(context.Background(), "u1", resolve)
	if err != nil {
		t.Fatalf("GetOrResolve: %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("expected one resolution, got %d", calls.Load())
	}
	// Cache hits hand out the same immutable value.
	if first != second {
		t.Fatal("expected identical identity pointer on hit")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Size != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCacheConcurrentMissesCoalesce(t *testing.T) {
	cache := NewIdentityCache(10, time.Minute)
	var calls atomic.Int64
	resolve := func(context.Context) (*Identity, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return testIdentity("u1", "proj-42"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrResolve(context.Background(), "u1", resolve); err != nil {
				t.Errorf("GetOrResolve: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected coalesced single resolution, got %d", calls.Load())
	}
}

func TestCacheNeverCachesFailures(t *testing.T) {
	cache := NewIdentityCache(10, time.Minute)
	var calls int
	failing := func(context.Context) (*Identity, error) {
		calls++
		if calls == 1 {
			return nil, WrapError(KindUnavailable, errors.New("timeout"), "directory lookup failed")
		}
		return testIdentity("u1", "proj-42"), nil
	}

	if _, err := cache.GetOrResolve(context.Background(), "u1", failing); err == nil {
		t.Fatal("expected first resolution to fail")
	}
	if cache.Stats().Size != 0 {
		t.Fatal("failed resolution must not populate the cache")
	}

	// The next request retries instead of replaying the failure.
	id, err := cache.GetOrResolve(context.Background(), "u1", failing)
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if id.SubjectID != "u1" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if calls != 2 {
		t.Fatalf("expected two resolver calls, got %d", calls)
	}
}

func TestCacheInvalidateForcesReresolve(t *testing.T) {
	cache := NewIdentityCache(10, time.Minute)
	var calls int
	resolve := func(context.Context) (*Identity, error) {
		calls++
		return testIdentity("u1", fmt.Sprintf("proj-%d", calls)), nil
	}

	id, _ := cache.GetOrResolve(context.Background(), "u1", resolve)
	if id.PrimaryScope != "proj-1" {
		t.Fatalf("unexpected scope: %s", id.PrimaryScope)
	}

	if !cache.Invalidate("u1") {
		t.Fatal("expected invalidation of a present entry")
	}
	if cache.Invalidate("u1") {
		t.Fatal("second invalidation must report absence")
	}

	id, _ = cache.GetOrResolve(context.Background(), "u1", resolve)
	if id.PrimaryScope != "proj-2" {
		t.Fatal("invalidation must force a fresh resolution")
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	cache := NewIdentityCache(10, time.Minute)
	for i := 0; i < 5; i++ {
		subject := fmt.Sprintf("u%d", i)
		_, _ = cache.GetOrResolve(context.Background(), subject, func(context.Context) (*Identity, error) {
			return testIdentity(subject, "proj-42"), nil
		})
	}
	if cache.Stats().Size != 5 {
		t.Fatalf("expected 5 entries, got %d", cache.Stats().Size)
	}

	cache.InvalidateAll()
	if cache.Stats().Size != 0 {
		t.Fatal("expected empty cache after purge")
	}
}

func TestCacheCapacityEviction(t *testing.T) {
	cache := NewIdentityCache(2, time.Minute)
	for i := 0; i < 3; i++ {
		subject := fmt.Sprintf("u%d", i)
		_, _ = cache.GetOrResolve(context.Background(), subject, func(context.Context) (*Identity, error) {
			return testIdentity(subject, "proj-42"), nil
		})
	}

	stats := cache.Stats()
	if stats.Size != 2 {
		t.Fatalf("expected capacity-bounded size 2, got %d", stats.Size)
	}

	// The oldest entry was evicted, so it resolves again.
	var calls int
	_, _ = cache.GetOrResolve(context.Background(), "u0", func(context.Context) (*Identity, error) {
		calls++
		return testIdentity("u0", "proj-42"), nil
	})
	if calls != 1 {
		t.Fatal("expected evicted entry to re-resolve")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := NewIdentityCache(10, 20*time.Millisecond)
	var calls int
	resolve := func(context.Context) (*Identity, error) {
		calls++
		return testIdentity("u1", "proj-42"), nil
	}

	_, _ = cache.GetOrResolve(context.Background(), "u1", resolve)
	time.Sleep(40 * time.Millisecond)
	_, _ = cache.GetOrResolve(context.Background(), "u1", resolve)

	if calls != 2 {
		t.Fatalf("expected re-resolution after TTL, got %d calls", calls)
	}
}
