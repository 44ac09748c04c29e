package rbac

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	_ "github.com/stocklane-erp/stocklane/testing"
)

func newTestCache(t *testing.T) *PermissionCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPermissionCache(client, time.Minute)
}

func TestCacheLoadsOnceUntilInvalidated(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) ([]string, error) {
		loads.Add(1)
		return []string{"VALIDATE_ORDERS", "VIEW_STOCKS"}, nil
	}

	first, err := cache.Get(ctx, 3, load)
	require.NoError(t, err)
	require.Equal(t, []string{"VALIDATE_ORDERS", "VIEW_STOCKS"}, first)

	second, err := cache.Get(ctx, 3, load)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), loads.Load())

	cache.Invalidate(ctx, 3)

	_, err = cache.Get(ctx, 3, load)
	require.NoError(t, err)
	require.Equal(t, int32(2), loads.Load())
}

func TestCacheKeysRolesIndependently(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	clerk, err := cache.Get(ctx, 1, func(context.Context) ([]string, error) {
		return []string{"VIEW_STOCKS"}, nil
	})
	require.NoError(t, err)

	admin, err := cache.Get(ctx, 2, func(context.Context) ([]string, error) {
		return []string{"EDIT_USERS", "VIEW_STOCKS"}, nil
	})
	require.NoError(t, err)

	require.Equal(t, []string{"VIEW_STOCKS"}, clerk)
	require.Equal(t, []string{"EDIT_USERS", "VIEW_STOCKS"}, admin)
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]string, error) {
		loads.Add(1)
		<-release
		return []string{"VIEW_ORDERS"}, nil
	}

	const callers = 8
	results := make([][]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.Get(ctx, 5, load)
		}()
	}
	// Give the goroutines a chance to pile onto the same key.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), loads.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, []string{"VIEW_ORDERS"}, results[i])
	}
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	var cache *PermissionCache
	ctx := context.Background()

	var loads atomic.Int32
	load := func(context.Context) ([]string, error) {
		loads.Add(1)
		return []string{"VIEW_STOCKS"}, nil
	}

	for i := 0; i < 3; i++ {
		perms, err := cache.Get(ctx, 1, load)
		require.NoError(t, err)
		require.Equal(t, []string{"VIEW_STOCKS"}, perms)
	}
	require.Equal(t, int32(3), loads.Load())
}
