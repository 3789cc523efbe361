package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxSize int, enableLRU bool) *MemoryCache {
	t.Helper()

	c := NewMemoryCache(maxSize, time.Minute, enableLRU)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCacheMarkAndCheck(t *testing.T) {
	c := newTestCache(t, 10, false)
	ctx := context.Background()

	seen, err := c.IsSeen(ctx, "delivery-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, c.MarkSeen(ctx, "delivery-1", time.Minute))

	seen, err = c.IsSeen(ctx, "delivery-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = c.IsSeen(ctx, "delivery-2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newTestCache(t, 10, false)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "delivery-1", -time.Second))

	seen, err := c.IsSeen(ctx, "delivery-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryCacheEvictionAtCapacity(t *testing.T) {
	c := newTestCache(t, 2, false)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "a", time.Minute))
	require.NoError(t, c.MarkSeen(ctx, "b", time.Minute))
	require.NoError(t, c.MarkSeen(ctx, "c", time.Minute))

	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()
	assert.Equal(t, 2, size)

	seen, err := c.IsSeen(ctx, "c")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryCacheRemarkDoesNotEvict(t *testing.T) {
	c := newTestCache(t, 2, false)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "a", time.Minute))
	require.NoError(t, c.MarkSeen(ctx, "b", time.Minute))

	// Refreshing an entry already present at capacity must not push a
	// neighbor out.
	require.NoError(t, c.MarkSeen(ctx, "a", time.Hour))

	for _, id := range []string{"a", "b"} {
		seen, err := c.IsSeen(ctx, id)
		require.NoError(t, err)
		assert.True(t, seen, id)
	}
}

func TestMemoryCacheEvictsExpiredFirst(t *testing.T) {
	c := newTestCache(t, 2, false)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "expired", -time.Second))
	require.NoError(t, c.MarkSeen(ctx, "live", time.Minute))
	require.NoError(t, c.MarkSeen(ctx, "new", time.Minute))

	seen, err := c.IsSeen(ctx, "live")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = c.IsSeen(ctx, "new")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	c := newTestCache(t, 2, true)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "a", time.Minute))
	require.NoError(t, c.MarkSeen(ctx, "b", time.Minute))

	// Touching "a" makes "b" the least recently used entry.
	seen, err := c.IsSeen(ctx, "a")
	require.NoError(t, err)
	require.True(t, seen)

	require.NoError(t, c.MarkSeen(ctx, "c", time.Minute))

	seen, _ = c.IsSeen(ctx, "a")
	assert.True(t, seen)
	seen, _ = c.IsSeen(ctx, "b")
	assert.False(t, seen)
	seen, _ = c.IsSeen(ctx, "c")
	assert.True(t, seen)
}

func TestMemoryCacheClose(t *testing.T) {
	c := NewMemoryCache(10, time.Minute, false)
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "a", time.Minute))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	// Operations on a closed cache degrade to no-ops.
	seen, err := c.IsSeen(ctx, "a")
	require.NoError(t, err)
	assert.False(t, seen)
	require.NoError(t, c.MarkSeen(ctx, "b", time.Minute))
}

func TestMemoryCacheBackgroundCleanup(t *testing.T) {
	c := NewMemoryCache(10, 10*time.Millisecond, false)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.MarkSeen(context.Background(), "a", time.Millisecond))

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.entries) == 0
	}, time.Second, 10*time.Millisecond)
}
