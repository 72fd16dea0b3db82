package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingIndexNotifier is the collaborator interface toward dynamic product
// groupings and listing indexes that filter on stock. Implementations are
// fire-and-forget; a failed notification is logged, never propagated.
type ListingIndexNotifier interface {
	NotifyAvailableStockChanged(ctx context.Context, productIDs []uuid.UUID) error
}

// AvailableStockCalculator derives the sellable quantity and the
// purchasability flag of a product from the three aggregate inputs:
//
//	available = physical - notAvailableForSale - (internalReserved + externalReserved)
//
// The result may be negative (oversell). It runs whenever any input changed.
type AvailableStockCalculator struct {
	logger    *zap.Logger
	notifiers []ListingIndexNotifier
}

// NewAvailableStockCalculator creates an available stock calculator
func NewAvailableStockCalculator(logger *zap.Logger) *AvailableStockCalculator {
	return &AvailableStockCalculator{logger: logger}
}

// RegisterListingIndexNotifier adds a listing-index collaborator
func (c *AvailableStockCalculator) RegisterListingIndexNotifier(notifier ListingIndexNotifier) {
	c.notifiers = append(c.notifiers, notifier)
}

// Recalculate recomputes available stock and the availability flag for the
// given products and informs the listing collaborators. An empty product set
// is a silent no-op.
func (c *AvailableStockCalculator) Recalculate(ctx context.Context, repos TransactionalRepositories, productIDs []uuid.UUID, notifications *Notifications) error {
	if len(productIDs) == 0 {
		return nil
	}

	rows, err := repos.ProductStockRepo().FindByProducts(ctx, productIDs, true)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	policies, err := repos.ProductConfigRepo().ResolvePolicies(ctx, productIDs)
	if err != nil {
		return err
	}

	for _, row := range rows {
		row.RecalculateAvailableStock()
		policy, ok := policies[row.ProductID]
		if !ok {
			policy = stock.AvailabilityPolicy{MinPurchase: stock.DefaultMinPurchase}
		}
		row.ApplyAvailabilityPolicy(policy)
	}

	if err := repos.ProductStockRepo().UpdateAvailability(ctx, rows); err != nil {
		return err
	}

	notifications.Add(stock.NewAvailableStockUpdatedEvent(productIDs))

	for _, notifier := range c.notifiers {
		if err := notifier.NotifyAvailableStockChanged(ctx, productIDs); err != nil {
			c.logger.Warn("listing index notification failed",
				zap.Int("products", len(productIDs)),
				zap.Error(err))
		}
	}

	c.logger.Debug("recalculated available stock", zap.Int("products", len(productIDs)))
	return nil
}
