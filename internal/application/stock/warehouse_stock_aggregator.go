package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WarehouseStockAggregator maintains the per-(product, warehouse) rollup.
// A rollup row counts stock in the warehouse itself and its bin locations.
// Goods receipts and stock containers are deliberately excluded: their stock
// is in transit and accounted separately. Rows are kept at zero rather than
// deleted so reorder-point tracking has a stable join target.
type WarehouseStockAggregator struct {
	logger *zap.Logger
}

// NewWarehouseStockAggregator creates a warehouse stock aggregator
func NewWarehouseStockAggregator(logger *zap.Logger) *WarehouseStockAggregator {
	return &WarehouseStockAggregator{logger: logger}
}

// WarehouseStockUpdate reports which rollup rows an operation touched
type WarehouseStockUpdate struct {
	ProductIDs   []uuid.UUID
	WarehouseIDs []uuid.UUID
}

// ApplyChanges shifts rollups by the row deltas of applied movements. Changes
// at locations that do not resolve to a warehouse are ignored here; they
// never contribute to warehouse stock.
func (a *WarehouseStockAggregator) ApplyChanges(ctx context.Context, repos TransactionalRepositories, changes []stock.StockChange, notifications *Notifications) (*WarehouseStockUpdate, error) {
	if len(changes) == 0 {
		return &WarehouseStockUpdate{}, nil
	}

	locations := make([]stock.Location, 0, len(changes))
	for _, change := range changes {
		if change.Location.IsWarehouseRelevant() {
			locations = append(locations, change.Location)
		}
	}
	if len(locations) == 0 {
		return &WarehouseStockUpdate{}, nil
	}

	warehouses, err := repos.WarehouseRepo().ResolveWarehouses(ctx, locations)
	if err != nil {
		return nil, err
	}

	type rollupKey struct {
		productID   uuid.UUID
		warehouseID uuid.UUID
	}
	type rollupDelta struct {
		productVersionID uuid.UUID
		delta            int64
	}
	deltas := make(map[rollupKey]*rollupDelta)
	keys := make([]rollupKey, 0, len(changes))

	for _, change := range changes {
		warehouse, ok := warehouses[change.Location]
		if !ok {
			continue
		}
		key := rollupKey{productID: change.ProductID, warehouseID: warehouse.ID}
		entry, ok := deltas[key]
		if !ok {
			entry = &rollupDelta{productVersionID: change.ProductVersionID}
			deltas[key] = entry
			keys = append(keys, key)
		}
		entry.delta += change.Delta
	}

	update := &WarehouseStockUpdate{}
	seenProducts := make(map[uuid.UUID]struct{})
	seenWarehouses := make(map[uuid.UUID]struct{})

	for _, key := range keys {
		entry := deltas[key]
		if entry.delta == 0 {
			continue
		}
		if err := repos.WarehouseStockRepo().ApplyDelta(ctx, key.productID, entry.productVersionID, key.warehouseID, entry.delta); err != nil {
			return nil, err
		}
		if _, ok := seenProducts[key.productID]; !ok {
			seenProducts[key.productID] = struct{}{}
			update.ProductIDs = append(update.ProductIDs, key.productID)
		}
		if _, ok := seenWarehouses[key.warehouseID]; !ok {
			seenWarehouses[key.warehouseID] = struct{}{}
			update.WarehouseIDs = append(update.WarehouseIDs, key.warehouseID)
		}
	}

	if len(update.ProductIDs) > 0 {
		notifications.Add(stock.NewWarehouseStockUpdatedEvent(update.ProductIDs, update.WarehouseIDs))
	}
	return update, nil
}

// RecalculateFromScratch rebuilds rollups of the given products from their
// on-hand rows.
func (a *WarehouseStockAggregator) RecalculateFromScratch(ctx context.Context, repos TransactionalRepositories, productIDs []uuid.UUID, notifications *Notifications) (*WarehouseStockUpdate, error) {
	if len(productIDs) == 0 {
		return &WarehouseStockUpdate{}, nil
	}

	onHand, err := repos.StockRepo().FindByProducts(ctx, productIDs, false)
	if err != nil {
		return nil, err
	}

	locations := make([]stock.Location, 0, len(onHand))
	for _, row := range onHand {
		if row.Location.IsWarehouseRelevant() {
			locations = append(locations, row.Location)
		}
	}
	warehouses, err := repos.WarehouseRepo().ResolveWarehouses(ctx, locations)
	if err != nil {
		return nil, err
	}

	type rollupKey struct {
		productID   uuid.UUID
		warehouseID uuid.UUID
	}
	sums := make(map[rollupKey]*stock.WarehouseStock)
	rows := make([]*stock.WarehouseStock, 0, len(onHand))
	warehouseIDs := make([]uuid.UUID, 0)
	seenWarehouses := make(map[uuid.UUID]struct{})

	for _, row := range onHand {
		warehouse, ok := warehouses[row.Location]
		if !ok {
			continue
		}
		key := rollupKey{productID: row.ProductID, warehouseID: warehouse.ID}
		entry, ok := sums[key]
		if !ok {
			entry = stock.NewWarehouseStock(row.ProductID, row.ProductVersionID, warehouse.ID)
			sums[key] = entry
			rows = append(rows, entry)
		}
		entry.Quantity += row.Quantity
		if _, ok := seenWarehouses[warehouse.ID]; !ok {
			seenWarehouses[warehouse.ID] = struct{}{}
			warehouseIDs = append(warehouseIDs, warehouse.ID)
		}
	}

	if err := repos.WarehouseStockRepo().ReplaceForProducts(ctx, productIDs, rows); err != nil {
		return nil, err
	}

	notifications.Add(stock.NewWarehouseStockUpdatedEvent(productIDs, warehouseIDs))

	a.logger.Debug("recalculated warehouse stock",
		zap.Int("products", len(productIDs)),
		zap.Int("rollups", len(rows)))

	return &WarehouseStockUpdate{ProductIDs: productIDs, WarehouseIDs: warehouseIDs}, nil
}

// EnsureRowsExist creates zero rollups for every (product, warehouse) pair,
// race-safe. Called when a product or warehouse is created so downstream
// joins always find a row.
func (a *WarehouseStockAggregator) EnsureRowsExist(ctx context.Context, repos TransactionalRepositories, productIDs, warehouseIDs []uuid.UUID) error {
	if len(productIDs) == 0 || len(warehouseIDs) == 0 {
		return nil
	}
	pairs := make([]stock.ProductWarehousePair, 0, len(productIDs)*len(warehouseIDs))
	for _, productID := range productIDs {
		for _, warehouseID := range warehouseIDs {
			pairs = append(pairs, stock.ProductWarehousePair{ProductID: productID, WarehouseID: warehouseID})
		}
	}
	return repos.WarehouseStockRepo().EnsureExists(ctx, pairs)
}
