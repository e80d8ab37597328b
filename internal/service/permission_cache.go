package service

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type permissionSource interface {
	PermissionsForRole(ctx context.Context, roleID int64) ([]string, error)
}

// PermissionCache memoizes role id -> permission names. Entries expire after
// the configured TTL and are dropped explicitly when a role is edited.
//
// A fill only lands if no invalidation for that role happened while the
// source was being read, so a slow reader cannot re-insert a revoked set.
type PermissionCache struct {
	source permissionSource
	lru    *expirable.LRU[int64, []string]

	mu     sync.Mutex
	gens   map[int64]uint64
	purges uint64
}

type cacheGeneration struct {
	role   uint64
	purges uint64
}

func NewPermissionCache(source permissionSource, size int, ttl time.Duration) *PermissionCache {
	if size <= 0 {
		size = 64
	}
	return &PermissionCache{
		source: source,
		lru:    expirable.NewLRU[int64, []string](size, nil, ttl),
		gens:   map[int64]uint64{},
	}
}

func (c *PermissionCache) Get(ctx context.Context, roleID int64) ([]string, error) {
	if perms, ok := c.lru.Get(roleID); ok {
		return clonePermissions(perms), nil
	}

	c.mu.Lock()
	before := c.generationLocked(roleID)
	c.mu.Unlock()

	perms, err := c.source.PermissionsForRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generationLocked(roleID) == before {
		c.lru.Add(roleID, clonePermissions(perms))
	}
	c.mu.Unlock()

	return perms, nil
}

func (c *PermissionCache) generationLocked(roleID int64) cacheGeneration {
	return cacheGeneration{role: c.gens[roleID], purges: c.purges}
}

func (c *PermissionCache) Invalidate(roleID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[roleID]++
	c.lru.Remove(roleID)
}

func (c *PermissionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
	c.lru.Purge()
}

func clonePermissions(perms []string) []string {
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
