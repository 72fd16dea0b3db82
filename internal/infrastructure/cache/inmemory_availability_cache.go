package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultCleanupInterval = 30 * time.Second
	defaultEntryTTL        = 30 * time.Second
)

// InMemoryAvailabilityCache implements AvailabilityCache using in-process
// storage. Suited for single-instance deployments and as the test double for
// the Redis-backed cache.
type InMemoryAvailabilityCache struct {
	entries sync.Map // map[uuid.UUID]*availabilityEntry
	ttl     time.Duration
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type availabilityEntry struct {
	value     *stock.ProductStock
	expiresAt time.Time
}

func (e *availabilityEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryAvailabilityCacheOption is a functional option for configuring the cache
type InMemoryAvailabilityCacheOption func(*InMemoryAvailabilityCache)

// WithInMemoryTTL sets the default entry TTL
func WithInMemoryTTL(ttl time.Duration) InMemoryAvailabilityCacheOption {
	return func(c *InMemoryAvailabilityCache) {
		c.ttl = ttl
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryAvailabilityCacheOption {
	return func(c *InMemoryAvailabilityCache) {
		c.logger = logger
	}
}

// NewInMemoryAvailabilityCache creates a new in-memory availability cache
func NewInMemoryAvailabilityCache(opts ...InMemoryAvailabilityCacheOption) *InMemoryAvailabilityCache {
	cache := &InMemoryAvailabilityCache{
		ttl:    defaultEntryTTL,
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// Get retrieves a product stock aggregate from cache
func (c *InMemoryAvailabilityCache) Get(ctx context.Context, productID uuid.UUID) (*stock.ProductStock, error) {
	if value, ok := c.entries.Load(productID); ok {
		entry := value.(*availabilityEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, nil
		}
		c.entries.Delete(productID)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a product stock aggregate in cache
func (c *InMemoryAvailabilityCache) Set(ctx context.Context, productStock *stock.ProductStock, ttl time.Duration) error {
	if productStock == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	c.entries.Store(productStock.ProductID, &availabilityEntry{
		value:     productStock,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes product stock aggregates from cache
func (c *InMemoryAvailabilityCache) Delete(ctx context.Context, productIDs ...uuid.UUID) error {
	for _, productID := range productIDs {
		c.entries.Delete(productID)
	}
	c.logger.Debug("invalidated cached product stocks", zap.Int("count", len(productIDs)))
	return nil
}

// Close stops the cleanup goroutine
func (c *InMemoryAvailabilityCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// Stats returns hit and miss counters
func (c *InMemoryAvailabilityCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func (c *InMemoryAvailabilityCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*availabilityEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

// Ensure InMemoryAvailabilityCache implements AvailabilityCache
var _ AvailabilityCache = (*InMemoryAvailabilityCache)(nil)
