package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReorderPointTracker keeps the derived shortfall of configured
// (product, warehouse) mappings current: reorderPoint minus warehouse stock,
// nil while no reorder point is set or the rollup row is missing. Recomputed
// whenever warehouse stock or the configuration itself changed.
type ReorderPointTracker struct {
	logger *zap.Logger
}

// NewReorderPointTracker creates a reorder point tracker
func NewReorderPointTracker(logger *zap.Logger) *ReorderPointTracker {
	return &ReorderPointTracker{logger: logger}
}

// RecalculateForProducts refreshes shortfalls of all mappings for the given
// products.
func (t *ReorderPointTracker) RecalculateForProducts(ctx context.Context, repos TransactionalRepositories, productIDs []uuid.UUID, notifications *Notifications) error {
	if len(productIDs) == 0 {
		return nil
	}
	configs, err := repos.ProductWarehouseConfigRepo().FindByProducts(ctx, productIDs)
	if err != nil {
		return err
	}
	return t.recalculate(ctx, repos, configs, notifications)
}

// RecalculateForWarehouses refreshes shortfalls of all mappings pointing at
// the given warehouses.
func (t *ReorderPointTracker) RecalculateForWarehouses(ctx context.Context, repos TransactionalRepositories, warehouseIDs []uuid.UUID, notifications *Notifications) error {
	if len(warehouseIDs) == 0 {
		return nil
	}
	configs, err := repos.ProductWarehouseConfigRepo().FindByWarehouses(ctx, warehouseIDs)
	if err != nil {
		return err
	}
	return t.recalculate(ctx, repos, configs, notifications)
}

func (t *ReorderPointTracker) recalculate(ctx context.Context, repos TransactionalRepositories, configs []*stock.ProductWarehouseConfiguration, notifications *Notifications) error {
	if len(configs) == 0 {
		return nil
	}

	productIDs := make([]uuid.UUID, 0, len(configs))
	seenProducts := make(map[uuid.UUID]struct{}, len(configs))
	warehouseIDs := make([]uuid.UUID, 0, len(configs))
	seenWarehouses := make(map[uuid.UUID]struct{}, len(configs))
	for _, config := range configs {
		if _, ok := seenProducts[config.ProductID]; !ok {
			seenProducts[config.ProductID] = struct{}{}
			productIDs = append(productIDs, config.ProductID)
		}
		if _, ok := seenWarehouses[config.WarehouseID]; !ok {
			seenWarehouses[config.WarehouseID] = struct{}{}
			warehouseIDs = append(warehouseIDs, config.WarehouseID)
		}
	}

	rollups, err := repos.WarehouseStockRepo().FindByProducts(ctx, productIDs)
	if err != nil {
		return err
	}
	quantities := make(map[stock.ProductWarehousePair]int64, len(rollups))
	for _, rollup := range rollups {
		quantities[stock.ProductWarehousePair{ProductID: rollup.ProductID, WarehouseID: rollup.WarehouseID}] = rollup.Quantity
	}

	changed := make([]*stock.ProductWarehouseConfiguration, 0, len(configs))
	for _, config := range configs {
		before := config.StockBelowReorderPoint
		qty, ok := quantities[stock.ProductWarehousePair{ProductID: config.ProductID, WarehouseID: config.WarehouseID}]
		if ok {
			config.RecalculateStockBelowReorderPoint(&qty)
		} else {
			config.RecalculateStockBelowReorderPoint(nil)
		}
		if !int64PtrEqual(before, config.StockBelowReorderPoint) {
			changed = append(changed, config)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	if err := repos.ProductWarehouseConfigRepo().Save(ctx, changed); err != nil {
		return err
	}

	notifications.Add(stock.NewStockBelowReorderPointUpdatedEvent(productIDs, warehouseIDs))

	t.logger.Debug("recalculated reorder shortfalls",
		zap.Int("configurations", len(configs)),
		zap.Int("changed", len(changed)))
	return nil
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
