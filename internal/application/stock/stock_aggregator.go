package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockAggregator maintains the on-hand rows and the physical stock of the
// per-product aggregate from the movement ledger. It supports an incremental
// path driven by freshly recorded movements and a full recompute that derives
// everything from the ledger again; both must agree.
type StockAggregator struct {
	logger *zap.Logger
}

// NewStockAggregator creates a stock aggregator
func NewStockAggregator(logger *zap.Logger) *StockAggregator {
	return &StockAggregator{logger: logger}
}

// MovementApplication reports what a batch of applied movements touched
type MovementApplication struct {
	ProductIDs  []uuid.UUID
	MovementIDs []uuid.UUID
	Changes     []stock.StockChange
}

// ApplyMovements applies recorded movements incrementally: collapses them,
// adjusts on-hand rows, and shifts physical stock by the quantity crossing
// the internal/external boundary. Movements that cancel out completely leave
// no trace and emit no notification.
func (a *StockAggregator) ApplyMovements(ctx context.Context, repos TransactionalRepositories, movements []*stock.StockMovement, notifications *Notifications) (*MovementApplication, error) {
	if len(movements) == 0 {
		return &MovementApplication{}, nil
	}

	productIDs := distinctProductIDs(movements)
	batchTracked, err := repos.ProductConfigRepo().BatchTracked(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	groups, err := stock.CollapseMovements(movements, batchTracked)
	if err != nil {
		return nil, err
	}
	changes := stock.StockChangesForGroups(groups)
	if len(changes) == 0 {
		return &MovementApplication{}, nil
	}

	affected := distinctChangeProductIDs(changes)

	// Lock the aggregates first so concurrent recomputations for the same
	// products serialize on the same rows.
	if err := repos.ProductStockRepo().EnsureExists(ctx, affected); err != nil {
		return nil, err
	}
	if _, err := repos.ProductStockRepo().FindByProducts(ctx, affected, true); err != nil {
		return nil, err
	}

	if err := repos.StockRepo().ApplyChanges(ctx, changes); err != nil {
		return nil, err
	}

	physicalDeltas := make(map[uuid.UUID]int64)
	for _, change := range changes {
		if change.Location.IsInternal() {
			physicalDeltas[change.ProductID] += change.Delta
		}
	}
	for productID, delta := range physicalDeltas {
		if delta == 0 {
			continue
		}
		if err := repos.ProductStockRepo().ApplyPhysicalStockDelta(ctx, productID, delta); err != nil {
			return nil, err
		}
	}

	if err := repos.StockRepo().DeleteEmptyRows(ctx, affected); err != nil {
		return nil, err
	}

	movementIDs := make([]uuid.UUID, 0, len(movements))
	for _, m := range movements {
		movementIDs = append(movementIDs, m.ID)
	}
	notifications.Add(stock.NewStockUpdatedForMovementsEvent(affected, movementIDs))

	a.logger.Debug("applied stock movements",
		zap.Int("movements", len(movements)),
		zap.Int("row_changes", len(changes)),
		zap.Int("products", len(affected)))

	return &MovementApplication{ProductIDs: affected, MovementIDs: movementIDs, Changes: changes}, nil
}

// RecalculateFromScratch discards the on-hand rows of the given products and
// rebuilds them from the ledger. Physical stock is overwritten with the sum
// over internal locations, explicitly zero for products the ledger no longer
// mentions.
func (a *StockAggregator) RecalculateFromScratch(ctx context.Context, repos TransactionalRepositories, productIDs []uuid.UUID, notifications *Notifications) error {
	if len(productIDs) == 0 {
		return nil
	}

	if err := repos.ProductStockRepo().EnsureExists(ctx, productIDs); err != nil {
		return err
	}
	if _, err := repos.ProductStockRepo().FindByProducts(ctx, productIDs, true); err != nil {
		return err
	}

	sums, err := repos.MovementRepo().SumByProductAndLocation(ctx, productIDs)
	if err != nil {
		return err
	}

	rows := make([]*stock.Stock, 0, len(sums))
	physical := make(map[uuid.UUID]int64, len(productIDs))
	for _, id := range productIDs {
		physical[id] = 0
	}
	for _, sum := range sums {
		rows = append(rows, stock.NewStock(sum.ProductID, sum.ProductVersionID, sum.Location, sum.Quantity))
		if sum.Location.IsInternal() {
			physical[sum.ProductID] += sum.Quantity
		}
	}

	if err := repos.StockRepo().ReplaceForProducts(ctx, productIDs, rows); err != nil {
		return err
	}
	if err := repos.ProductStockRepo().SetPhysicalStock(ctx, physical); err != nil {
		return err
	}
	if err := repos.StockRepo().DeleteEmptyRows(ctx, productIDs); err != nil {
		return err
	}

	notifications.Add(stock.NewStockUpdatedForMovementsEvent(productIDs, nil))

	a.logger.Debug("recalculated stock from ledger", zap.Int("products", len(productIDs)))
	return nil
}

func distinctProductIDs(movements []*stock.StockMovement) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(movements))
	ids := make([]uuid.UUID, 0, len(movements))
	for _, m := range movements {
		if _, ok := seen[m.ProductID]; ok {
			continue
		}
		seen[m.ProductID] = struct{}{}
		ids = append(ids, m.ProductID)
	}
	return ids
}

func distinctChangeProductIDs(changes []stock.StockChange) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(changes))
	ids := make([]uuid.UUID, 0, len(changes))
	for _, c := range changes {
		if _, ok := seen[c.ProductID]; ok {
			continue
		}
		seen[c.ProductID] = struct{}{}
		ids = append(ids, c.ProductID)
	}
	return ids
}
