package cache

import (
	"context"
	"time"
)

// NoOpCache is a no-op cache implementation used when deduplication is disabled.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// IsSeen reports every delivery as unseen.
func (c *NoOpCache) IsSeen(ctx context.Context, deliveryID string) (bool, error) {
	return false, nil
}

// MarkSeen is a no-op that does not persist any state.
func (c *NoOpCache) MarkSeen(ctx context.Context, deliveryID string, ttl time.Duration) error {
	return nil
}

// Close is a no-op that does not release any resources.
func (c *NoOpCache) Close() error {
	return nil
}
