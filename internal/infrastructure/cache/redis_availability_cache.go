package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/erp/stockengine/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const productStockKeyPrefix = "stockengine:product_stock:"

// RedisAvailabilityCache implements AvailabilityCache using Redis, shared
// across engine instances.
type RedisAvailabilityCache struct {
	client     *redis.Client
	ownsClient bool
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisAvailabilityCacheOption is a functional option for configuring the cache
type RedisAvailabilityCacheOption func(*RedisAvailabilityCache)

// WithRedisTTL sets the default entry TTL
func WithRedisTTL(ttl time.Duration) RedisAvailabilityCacheOption {
	return func(c *RedisAvailabilityCache) {
		c.ttl = ttl
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisAvailabilityCacheOption {
	return func(c *RedisAvailabilityCache) {
		c.logger = logger
	}
}

// NewRedisAvailabilityCache creates a cache with its own Redis connection
func NewRedisAvailabilityCache(cfg *config.RedisConfig, opts ...RedisAvailabilityCacheOption) (*RedisAvailabilityCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisAvailabilityCache{
		client:     client,
		ownsClient: true,
		ttl:        defaultEntryTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache, nil
}

// NewRedisAvailabilityCacheWithClient creates a cache over an existing client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisAvailabilityCacheWithClient(client *redis.Client, opts ...RedisAvailabilityCacheOption) *RedisAvailabilityCache {
	cache := &RedisAvailabilityCache{
		client: client,
		ttl:    defaultEntryTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func productStockKey(productID uuid.UUID) string {
	return productStockKeyPrefix + productID.String()
}

// Get retrieves a product stock aggregate from Redis
func (c *RedisAvailabilityCache) Get(ctx context.Context, productID uuid.UUID) (*stock.ProductStock, error) {
	data, err := c.client.Get(ctx, productStockKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached product stock: %w", err)
	}

	var productStock stock.ProductStock
	if err := json.Unmarshal(data, &productStock); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		c.logger.Warn("dropping corrupt cached product stock",
			zap.String("product_id", productID.String()),
			zap.Error(err),
		)
		c.client.Del(ctx, productStockKey(productID))
		return nil, nil
	}
	return &productStock, nil
}

// Set stores a product stock aggregate in Redis
func (c *RedisAvailabilityCache) Set(ctx context.Context, productStock *stock.ProductStock, ttl time.Duration) error {
	if productStock == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(productStock)
	if err != nil {
		return fmt.Errorf("failed to marshal product stock: %w", err)
	}
	return c.client.Set(ctx, productStockKey(productStock.ProductID), data, ttl).Err()
}

// Delete removes product stock aggregates from Redis
func (c *RedisAvailabilityCache) Delete(ctx context.Context, productIDs ...uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(productIDs))
	for _, productID := range productIDs {
		keys = append(keys, productStockKey(productID))
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection if this cache owns it
func (c *RedisAvailabilityCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Ensure RedisAvailabilityCache implements AvailabilityCache
var _ AvailabilityCache = (*RedisAvailabilityCache)(nil)
