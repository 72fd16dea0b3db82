package cache

import (
	"context"
	"time"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
)

// AvailabilityCache is a read cache over the per-product stock aggregates.
// Get returns (nil, nil) on a miss; the caller falls through to the database.
// Entries are invalidated when the engine publishes a stock update for the
// product, TTL is only the staleness bound for missed invalidations.
type AvailabilityCache interface {
	Get(ctx context.Context, productID uuid.UUID) (*stock.ProductStock, error)
	Set(ctx context.Context, productStock *stock.ProductStock, ttl time.Duration) error
	Delete(ctx context.Context, productIDs ...uuid.UUID) error
	Close() error
}
