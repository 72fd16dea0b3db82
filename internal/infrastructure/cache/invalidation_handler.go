package cache

import (
	"context"
	"fmt"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityInvalidationHandler drops cached product stocks whenever the
// engine publishes an update for them. Subscribed to the event bus next to
// the external consumers.
type AvailabilityInvalidationHandler struct {
	cache  AvailabilityCache
	logger *zap.Logger
}

// NewAvailabilityInvalidationHandler creates a new invalidation handler
func NewAvailabilityInvalidationHandler(cache AvailabilityCache, logger *zap.Logger) *AvailabilityInvalidationHandler {
	return &AvailabilityInvalidationHandler{cache: cache, logger: logger}
}

// EventTypes returns the event types this handler processes
func (h *AvailabilityInvalidationHandler) EventTypes() []string {
	return []string{
		stock.EventTypeStockUpdatedForMovements,
		stock.EventTypeReservedStockUpdated,
		stock.EventTypeStockNotAvailableForSaleUpdated,
		stock.EventTypeAvailableStockUpdated,
	}
}

// Handle invalidates the cache entries of the products the event names
func (h *AvailabilityInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var productIDs []uuid.UUID
	switch e := event.(type) {
	case *stock.StockUpdatedForMovementsEvent:
		productIDs = e.ProductIDs
	case *stock.ReservedStockUpdatedEvent:
		productIDs = e.ProductIDs
	case *stock.StockNotAvailableForSaleUpdatedEvent:
		productIDs = e.ProductIDs
	case *stock.AvailableStockUpdatedEvent:
		productIDs = e.ProductIDs
	default:
		return fmt.Errorf("unexpected event type %T for cache invalidation", event)
	}

	if len(productIDs) == 0 {
		return nil
	}
	if err := h.cache.Delete(ctx, productIDs...); err != nil {
		h.logger.Warn("failed to invalidate cached product stocks",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Ensure AvailabilityInvalidationHandler implements EventHandler
var _ shared.EventHandler = (*AvailabilityInvalidationHandler)(nil)
