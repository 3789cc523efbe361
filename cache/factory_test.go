package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheDisabled(t *testing.T) {
	c, err := NewCache(CacheConfig{Enabled: false, Type: "redis"})
	require.NoError(t, err)
	assert.IsType(t, &NoOpCache{}, c)
}

func TestNewCacheMemory(t *testing.T) {
	c, err := NewCache(CacheConfig{
		Enabled: true,
		Type:    "memory",
		Memory:  MemoryConfig{MaxSize: 5},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.IsType(t, &MemoryCache{}, c)

	ctx := context.Background()
	require.NoError(t, c.MarkSeen(ctx, "delivery-1", time.Minute))
	seen, err := c.IsSeen(ctx, "delivery-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestNewCacheUnknownType(t *testing.T) {
	_, err := NewCache(CacheConfig{Enabled: true, Type: "memcached"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache type")
}

func TestNewCacheRedisUnreachable(t *testing.T) {
	_, err := NewCache(CacheConfig{
		Enabled: true,
		Type:    "redis",
		Redis: RedisConfig{
			Address:     "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()

	require.NoError(t, c.MarkSeen(ctx, "delivery-1", time.Minute))

	seen, err := c.IsSeen(ctx, "delivery-1")
	require.NoError(t, err)
	assert.False(t, seen)

	assert.NoError(t, c.Close())
}
