package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionCacheMemoizesAndInvalidates(t *testing.T) {
	db := newMemDB()
	cache := NewPermissionCache(memRoles{db}, 8, time.Minute)
	ctx := context.Background()

	perms, err := cache.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"view_videos"}, perms)

	_, err = cache.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, db.permCalls)

	db.mu.Lock()
	db.perms[2] = []string{"like_video", "view_videos"}
	db.mu.Unlock()

	cache.Invalidate(2)
	perms, err = cache.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"like_video", "view_videos"}, perms)
	assert.Equal(t, 2, db.permCalls)

	cache.Purge()
	_, err = cache.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, db.permCalls)
}

func TestPermissionCacheReturnsCopies(t *testing.T) {
	db := newMemDB()
	cache := NewPermissionCache(memRoles{db}, 8, time.Minute)

	first, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	first[0] = "tampered"

	second, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "manage_access_codes", second[0])
}

// gatedSource blocks the first read until released, then serves whatever
// the current permission set is.
type gatedSource struct {
	mu      sync.Mutex
	perms   []string
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSource) PermissionsForRole(_ context.Context, _ int64) ([]string, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	snapshot := clonePermissions(s.perms)
	s.mu.Unlock()

	if first {
		close(s.entered)
		<-s.release
	}
	return snapshot, nil
}

func (s *gatedSource) set(perms []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms = perms
}

func TestPermissionCacheDropsFillRacingInvalidate(t *testing.T) {
	src := &gatedSource{
		perms:   []string{"manage_users"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewPermissionCache(src, 8, time.Minute)
	ctx := context.Background()

	done := make(chan []string)
	go func() {
		perms, err := cache.Get(ctx, 1)
		assert.NoError(t, err)
		done <- perms
	}()

	<-src.entered
	src.set([]string{})
	cache.Invalidate(1)
	close(src.release)

	assert.Equal(t, []string{"manage_users"}, <-done)

	perms, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, perms)
	assert.Equal(t, 2, src.calls)
}

func TestPermissionCachePurgeDiscardsInFlightFill(t *testing.T) {
	src := &gatedSource{
		perms:   []string{"view_audit"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewPermissionCache(src, 8, time.Minute)

	done := make(chan struct{})
	go func() {
		_, _ = cache.Get(context.Background(), 3)
		close(done)
	}()

	<-src.entered
	cache.Purge()
	close(src.release)
	<-done

	_, ok := cache.lru.Get(3)
	assert.False(t, ok)
}
