package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotAvailableForSaleCalculator maintains the quantity of on-hand stock that
// is physically present but administratively offline: stock in warehouses
// flagged not available for sale, including the goods receipts and stock
// containers those warehouses own.
//
// Four update paths exist. The full recompute is authoritative; the three
// incremental ones (movements, warehouse flag flip, goods-receipt/container
// reassignment) must in aggregate always land on the same values.
type NotAvailableForSaleCalculator struct {
	logger *zap.Logger
}

// NewNotAvailableForSaleCalculator creates the calculator
func NewNotAvailableForSaleCalculator(logger *zap.Logger) *NotAvailableForSaleCalculator {
	return &NotAvailableForSaleCalculator{logger: logger}
}

// Recalculate rebuilds the value for the given products from warehouse
// rollups and transit-location stock. The result replaces the stored value,
// explicitly zero when nothing is offline.
func (c *NotAvailableForSaleCalculator) Recalculate(ctx context.Context, repos TransactionalRepositories, productIDs []uuid.UUID, notifications *Notifications) error {
	if len(productIDs) == 0 {
		return nil
	}

	flagged, err := c.flaggedWarehouses(ctx, repos)
	if err != nil {
		return err
	}

	quantities := make(map[uuid.UUID]int64, len(productIDs))
	for _, id := range productIDs {
		quantities[id] = 0
	}

	rollups, err := repos.WarehouseStockRepo().FindByProducts(ctx, productIDs)
	if err != nil {
		return err
	}
	for _, rollup := range rollups {
		if _, offline := flagged[rollup.WarehouseID]; offline {
			quantities[rollup.ProductID] += rollup.Quantity
		}
	}

	onHand, err := repos.StockRepo().FindByProducts(ctx, productIDs, false)
	if err != nil {
		return err
	}
	transit := make([]stock.Location, 0)
	for _, row := range onHand {
		if isTransitLocation(row.Location) {
			transit = append(transit, row.Location)
		}
	}
	owners, err := repos.WarehouseRepo().ResolveWarehouses(ctx, transit)
	if err != nil {
		return err
	}
	for _, row := range onHand {
		if !isTransitLocation(row.Location) {
			continue
		}
		owner, ok := owners[row.Location]
		if !ok {
			continue
		}
		if _, offline := flagged[owner.ID]; offline {
			quantities[row.ProductID] += row.Quantity
		}
	}

	if err := repos.ProductStockRepo().SetNotAvailableForSale(ctx, quantities); err != nil {
		return err
	}
	notifications.Add(stock.NewStockNotAvailableForSaleUpdatedEvent(productIDs))

	c.logger.Debug("recalculated stock not available for sale", zap.Int("products", len(productIDs)))
	return nil
}

// ApplyChanges adjusts the value incrementally from applied row deltas. Only
// deltas at locations owned by a flagged warehouse contribute; a movement
// between two locations of equal availability status cancels out within its
// two deltas.
func (c *NotAvailableForSaleCalculator) ApplyChanges(ctx context.Context, repos TransactionalRepositories, changes []stock.StockChange, notifications *Notifications) error {
	if len(changes) == 0 {
		return nil
	}

	flagged, err := c.flaggedWarehouses(ctx, repos)
	if err != nil {
		return err
	}
	if len(flagged) == 0 {
		return nil
	}

	locations := make([]stock.Location, 0, len(changes))
	for _, change := range changes {
		if change.Location.IsWarehouseBacked() {
			locations = append(locations, change.Location)
		}
	}
	owners, err := repos.WarehouseRepo().ResolveWarehouses(ctx, locations)
	if err != nil {
		return err
	}

	deltas := make(map[uuid.UUID]int64)
	affected := make([]uuid.UUID, 0)
	for _, change := range changes {
		owner, ok := owners[change.Location]
		if !ok {
			continue
		}
		if _, offline := flagged[owner.ID]; !offline {
			continue
		}
		if _, seen := deltas[change.ProductID]; !seen {
			affected = append(affected, change.ProductID)
		}
		deltas[change.ProductID] += change.Delta
	}

	changedProducts := make([]uuid.UUID, 0, len(affected))
	for _, productID := range affected {
		delta := deltas[productID]
		if delta == 0 {
			continue
		}
		if err := repos.ProductStockRepo().ApplyNotAvailableForSaleDelta(ctx, productID, delta); err != nil {
			return err
		}
		changedProducts = append(changedProducts, productID)
	}

	if len(changedProducts) > 0 {
		notifications.Add(stock.NewStockNotAvailableForSaleUpdatedEvent(changedProducts))
	}
	return nil
}

// ApplyWarehouseFlagFlip adjusts the value for every product holding stock in
// the flipped warehouse (rollup plus owned goods receipts and containers).
// Flipping to unavailable adds the on-hand quantities, flipping back subtracts
// them. Returns the affected product ids.
func (c *NotAvailableForSaleCalculator) ApplyWarehouseFlagFlip(ctx context.Context, repos TransactionalRepositories, warehouseID uuid.UUID, nowAvailable bool, notifications *Notifications) ([]uuid.UUID, error) {
	quantities := make(map[uuid.UUID]int64)
	ordered := make([]uuid.UUID, 0)

	add := func(productID uuid.UUID, qty int64) {
		if _, seen := quantities[productID]; !seen {
			ordered = append(ordered, productID)
		}
		quantities[productID] += qty
	}

	rollups, err := repos.WarehouseStockRepo().FindByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	for _, rollup := range rollups {
		add(rollup.ProductID, rollup.Quantity)
	}

	for _, kind := range []stock.LocationKind{stock.LocationKindGoodsReceipt, stock.LocationKindStockContainer} {
		locationIDs, err := repos.WarehouseRepo().OwnedLocationIDs(ctx, warehouseID, kind)
		if err != nil {
			return nil, err
		}
		if len(locationIDs) == 0 {
			continue
		}
		held, err := repos.StockRepo().QuantitiesAtLocations(ctx, kind, locationIDs)
		if err != nil {
			return nil, err
		}
		for _, lq := range held {
			add(lq.ProductID, lq.Quantity)
		}
	}

	sign := int64(1)
	if nowAvailable {
		sign = -1
	}

	changed := make([]uuid.UUID, 0, len(ordered))
	for _, productID := range ordered {
		qty := quantities[productID]
		if qty == 0 {
			continue
		}
		if err := repos.ProductStockRepo().ApplyNotAvailableForSaleDelta(ctx, productID, sign*qty); err != nil {
			return nil, err
		}
		changed = append(changed, productID)
	}

	if len(changed) > 0 {
		notifications.Add(stock.NewStockNotAvailableForSaleUpdatedEvent(changed))
	}

	c.logger.Debug("applied warehouse availability flip",
		zap.String("warehouse_id", warehouseID.String()),
		zap.Bool("now_available", nowAvailable),
		zap.Int("products", len(changed)))
	return changed, nil
}

// ApplyLocationReassignment adjusts the value when a goods receipt or stock
// container moves between warehouses with differing availability flags.
// Returns the affected product ids; equal flags are a no-op.
func (c *NotAvailableForSaleCalculator) ApplyLocationReassignment(ctx context.Context, repos TransactionalRepositories, kind stock.LocationKind, locationID uuid.UUID, oldWarehouseID, newWarehouseID uuid.UUID, notifications *Notifications) ([]uuid.UUID, error) {
	warehouses, err := repos.WarehouseRepo().FindByIDs(ctx, []uuid.UUID{oldWarehouseID, newWarehouseID})
	if err != nil {
		return nil, err
	}
	available := make(map[uuid.UUID]bool, len(warehouses))
	for _, w := range warehouses {
		available[w.ID] = w.AvailableForSale
	}
	oldAvailable, oldKnown := available[oldWarehouseID]
	newAvailable, newKnown := available[newWarehouseID]
	// A vanished warehouse no longer withholds stock from sale.
	if !oldKnown {
		oldAvailable = true
	}
	if !newKnown {
		newAvailable = true
	}
	if oldAvailable == newAvailable {
		return nil, nil
	}

	held, err := repos.StockRepo().QuantitiesAtLocations(ctx, kind, []uuid.UUID{locationID})
	if err != nil {
		return nil, err
	}

	sign := int64(1)
	if newAvailable {
		sign = -1
	}

	changed := make([]uuid.UUID, 0, len(held))
	for _, lq := range held {
		if lq.Quantity == 0 {
			continue
		}
		if err := repos.ProductStockRepo().ApplyNotAvailableForSaleDelta(ctx, lq.ProductID, sign*lq.Quantity); err != nil {
			return nil, err
		}
		changed = append(changed, lq.ProductID)
	}

	if len(changed) > 0 {
		notifications.Add(stock.NewStockNotAvailableForSaleUpdatedEvent(changed))
	}
	return changed, nil
}

func (c *NotAvailableForSaleCalculator) flaggedWarehouses(ctx context.Context, repos TransactionalRepositories) (map[uuid.UUID]struct{}, error) {
	ids, err := repos.WarehouseRepo().NotAvailableForSaleIDs(ctx)
	if err != nil {
		return nil, err
	}
	flagged := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		flagged[id] = struct{}{}
	}
	return flagged, nil
}

func isTransitLocation(location stock.Location) bool {
	return location.Kind == stock.LocationKindGoodsReceipt || location.Kind == stock.LocationKindStockContainer
}
