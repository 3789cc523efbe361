package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory cache implementation
type MemoryCache struct {
	mu          sync.Mutex
	entries     map[string]time.Time
	maxSize     int
	cleanup     *time.Ticker
	stop        chan struct{}
	closed      bool
	enableLRU   bool
	accessOrder []string // oldest first, for LRU eviction
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(maxSize int, cleanupInterval time.Duration, enableLRU bool) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]time.Time),
		maxSize:     maxSize,
		cleanup:     time.NewTicker(cleanupInterval),
		stop:        make(chan struct{}),
		enableLRU:   enableLRU,
		accessOrder: make([]string, 0, maxSize),
	}

	go cache.cleanupExpired()

	return cache
}

// IsSeen checks if a delivery has already been handled. Expired
// entries are removed on read.
func (c *MemoryCache) IsSeen(ctx context.Context, deliveryID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, nil
	}

	expiresAt, exists := c.entries[deliveryID]
	if !exists {
		return false, nil
	}

	if time.Now().After(expiresAt) {
		delete(c.entries, deliveryID)
		if c.enableLRU {
			c.removeFromAccessOrder(deliveryID)
		}
		return false, nil
	}

	if c.enableLRU {
		c.updateAccessOrder(deliveryID)
	}

	return true, nil
}

// MarkSeen records a delivery as handled for the given TTL
func (c *MemoryCache) MarkSeen(ctx context.Context, deliveryID string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	if _, exists := c.entries[deliveryID]; !exists && len(c.entries) >= c.maxSize {
		c.evictOne()
	}

	c.entries[deliveryID] = time.Now().Add(ttl)

	if c.enableLRU {
		c.updateAccessOrder(deliveryID)
	}

	return nil
}

// evictOne frees one slot: the least recently used entry when LRU is
// enabled, otherwise an expired entry, falling back to an arbitrary
// one.
func (c *MemoryCache) evictOne() {
	if c.enableLRU && len(c.accessOrder) > 0 {
		oldest := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		delete(c.entries, oldest)
		return
	}

	now := time.Now()
	for key, expiresAt := range c.entries {
		if now.After(expiresAt) {
			delete(c.entries, key)
			return
		}
	}
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

// Close stops the cleanup goroutine and releases entries. Closing an
// already closed cache is a no-op.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.cleanup.Stop()
	close(c.stop)
	c.entries = nil
	c.accessOrder = nil

	return nil
}

// cleanupExpired periodically removes expired entries
func (c *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-c.cleanup.C:
			c.mu.Lock()
			now := time.Now()
			for key, expiresAt := range c.entries {
				if now.After(expiresAt) {
					delete(c.entries, key)
					if c.enableLRU {
						c.removeFromAccessOrder(key)
					}
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// updateAccessOrder moves an entry to the most recent position
func (c *MemoryCache) updateAccessOrder(deliveryID string) {
	c.removeFromAccessOrder(deliveryID)
	c.accessOrder = append(c.accessOrder, deliveryID)
}

// removeFromAccessOrder removes an entry from access order
func (c *MemoryCache) removeFromAccessOrder(deliveryID string) {
	for i, key := range c.accessOrder {
		if key == deliveryID {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			return
		}
	}
}
