package cache

import (
	"context"
	"time"
)

// Cache defines the interface for delivery deduplication cache
type Cache interface {
	// IsSeen checks if a delivery has already been handled
	IsSeen(ctx context.Context, deliveryID string) (bool, error)

	// MarkSeen records a delivery as handled for the given TTL
	MarkSeen(ctx context.Context, deliveryID string, ttl time.Duration) error

	// Close closes the cache and releases resources
	Close() error
}
