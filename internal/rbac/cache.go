package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PermissionCache caches resolved permission sets per role in Redis. The
// cache is an optimisation only: every assignment or permission mutation
// invalidates the affected roles, and entries expire after the TTL anyway.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewPermissionCache constructs a cache with the given entry TTL.
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{client: client, ttl: ttl}
}

func permKey(roleID int64) string {
	return fmt.Sprintf("rbac:perms:%d", roleID)
}

// Get returns the cached permission set for a role, loading and storing it on
// a miss. Concurrent misses for the same role collapse into one load.
func (c *PermissionCache) Get(ctx context.Context, roleID int64, load func(context.Context) ([]string, error)) ([]string, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	key := permKey(roleID)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var perms []string
		if err := json.Unmarshal(raw, &perms); err == nil {
			return perms, nil
		}
	}
	result, err, _ := c.group.Do(key, func() (any, error) {
		perms, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(perms); err == nil {
			// Best effort: a failed SET only costs the next request a reload.
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return perms, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// Invalidate drops the cached entry for a role.
func (c *PermissionCache) Invalidate(ctx context.Context, roleIDs ...int64) {
	if c == nil || c.client == nil || len(roleIDs) == 0 {
		return
	}
	keys := make([]string, len(roleIDs))
	for i, id := range roleIDs {
		keys[i] = permKey(id)
	}
	_ = c.client.Del(ctx, keys...).Err()
}
