package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockAccountingService orchestrates the calculators. Every public operation
// runs as one retryable transaction: ledger append, row updates and aggregate
// recomputation commit atomically, and the collected notifications are
// published only after the commit.
type StockAccountingService struct {
	scope           TransactionScope
	publisher       shared.EventPublisher
	stockAggregator *StockAggregator
	warehouseStock  *WarehouseStockAggregator
	reserved        *ReservedStockCalculator
	notAvailable    *NotAvailableForSaleCalculator
	available       *AvailableStockCalculator
	reorder         *ReorderPointTracker
	logger          *zap.Logger
}

// NewStockAccountingService creates the orchestrating service
func NewStockAccountingService(
	scope TransactionScope,
	publisher shared.EventPublisher,
	stockAggregator *StockAggregator,
	warehouseStock *WarehouseStockAggregator,
	reserved *ReservedStockCalculator,
	notAvailable *NotAvailableForSaleCalculator,
	available *AvailableStockCalculator,
	reorder *ReorderPointTracker,
	logger *zap.Logger,
) *StockAccountingService {
	return &StockAccountingService{
		scope:           scope,
		publisher:       publisher,
		stockAggregator: stockAggregator,
		warehouseStock:  warehouseStock,
		reserved:        reserved,
		notAvailable:    notAvailable,
		available:       available,
		reorder:         reorder,
		logger:          logger,
	}
}

// RecordMovements appends movements to the ledger and propagates them through
// all aggregates incrementally. Invalid locations or inconsistent batch
// splits fail the whole batch before anything is written.
func (s *StockAccountingService) RecordMovements(ctx context.Context, movements []*stock.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	for _, movement := range movements {
		if err := movement.Source.Validate(); err != nil {
			return err
		}
		if err := movement.Destination.Validate(); err != nil {
			return err
		}
	}

	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()
		if err := repos.MovementRepo().Create(ctx, movements); err != nil {
			return err
		}
		return s.propagateMovements(ctx, repos, movements, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// RecalculateProducts rebuilds every derived value of the given products from
// the ledger and live order state. Running it twice without intervening
// movements leaves all rows unchanged.
func (s *StockAccountingService) RecalculateProducts(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()
		if err := s.stockAggregator.RecalculateFromScratch(ctx, repos, productIDs, notifications); err != nil {
			return err
		}
		if _, err := s.warehouseStock.RecalculateFromScratch(ctx, repos, productIDs, notifications); err != nil {
			return err
		}
		if err := s.reserved.Recalculate(ctx, repos, productIDs, notifications); err != nil {
			return err
		}
		if err := s.notAvailable.Recalculate(ctx, repos, productIDs, notifications); err != nil {
			return err
		}
		if err := s.available.Recalculate(ctx, repos, productIDs, notifications); err != nil {
			return err
		}
		return s.reorder.RecalculateForProducts(ctx, repos, productIDs, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// RecalculateReservedStock recomputes reservations (and the dependent
// available stock) for the given products, typically after order state
// changed.
func (s *StockAccountingService) RecalculateReservedStock(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()
		if err := s.reserved.Recalculate(ctx, repos, productIDs, notifications); err != nil {
			return err
		}
		return s.available.Recalculate(ctx, repos, productIDs, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// HandleWarehouseWritten reacts to warehouse administration: new warehouses
// get eager rollup rows, and an availability flag flip shifts the
// not-available-for-sale quantities of every product stocked there.
func (s *StockAccountingService) HandleWarehouseWritten(ctx context.Context, warehouseID uuid.UUID, flagFlipped, nowAvailable bool) error {
	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()

		productIDs, err := repos.ProductConfigRepo().AllProductIDs(ctx)
		if err != nil {
			return err
		}
		if err := s.warehouseStock.EnsureRowsExist(ctx, repos, productIDs, []uuid.UUID{warehouseID}); err != nil {
			return err
		}

		if !flagFlipped {
			return nil
		}
		changed, err := s.notAvailable.ApplyWarehouseFlagFlip(ctx, repos, warehouseID, nowAvailable, notifications)
		if err != nil {
			return err
		}
		return s.available.Recalculate(ctx, repos, changed, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// HandleProductWritten reacts to catalog writes: aggregate and rollup rows
// are ensured and the availability policy is re-applied.
func (s *StockAccountingService) HandleProductWritten(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()

		if err := repos.ProductStockRepo().EnsureExists(ctx, productIDs); err != nil {
			return err
		}
		warehouses, err := repos.WarehouseRepo().FindAll(ctx)
		if err != nil {
			return err
		}
		warehouseIDs := make([]uuid.UUID, 0, len(warehouses))
		for _, w := range warehouses {
			warehouseIDs = append(warehouseIDs, w.ID)
		}
		if err := s.warehouseStock.EnsureRowsExist(ctx, repos, productIDs, warehouseIDs); err != nil {
			return err
		}
		return s.available.Recalculate(ctx, repos, productIDs, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// HandleLocationReassigned reacts to a goods receipt or stock container
// changing its owning warehouse.
func (s *StockAccountingService) HandleLocationReassigned(ctx context.Context, kind stock.LocationKind, locationID, oldWarehouseID, newWarehouseID uuid.UUID) error {
	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()
		changed, err := s.notAvailable.ApplyLocationReassignment(ctx, repos, kind, locationID, oldWarehouseID, newWarehouseID, notifications)
		if err != nil {
			return err
		}
		return s.available.Recalculate(ctx, repos, changed, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// HandleReorderConfigurationWritten refreshes the derived shortfalls after
// reorder points were edited.
func (s *StockAccountingService) HandleReorderConfigurationWritten(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()
		return s.reorder.RecalculateForProducts(ctx, repos, productIDs, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// CompensateNegativeWarehouseStock records corrective movements from the
// unknown pseudo-location for every warehouse or bin row that went negative,
// bringing the row back to zero while keeping the ledger honest about the
// unexplained units.
func (s *StockAccountingService) CompensateNegativeWarehouseStock(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	notifications := &Notifications{}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		notifications.Reset()

		rows, err := repos.StockRepo().FindByProducts(ctx, productIDs, true)
		if err != nil {
			return err
		}
		compensations := make([]*stock.StockMovement, 0)
		for i := range rows {
			row := &rows[i]
			if !row.IsNegativeOnHand() {
				continue
			}
			movement, err := stock.NewStockMovement(row.ProductID, row.ProductVersionID, -row.Quantity,
				stock.UnknownLocation(), row.Location)
			if err != nil {
				return err
			}
			movement.Comment = "negative stock compensation"
			compensations = append(compensations, movement)
		}
		if len(compensations) == 0 {
			return nil
		}
		if err := repos.MovementRepo().Create(ctx, compensations); err != nil {
			return err
		}
		return s.propagateMovements(ctx, repos, compensations, notifications)
	})
	if err != nil {
		return err
	}

	notifications.Publish(ctx, s.publisher, s.logger)
	return nil
}

// propagateMovements pushes already-persisted movements through the
// incremental paths of every aggregate. Reserved-stock requests raised along
// the way coalesce into one recompute at the end.
func (s *StockAccountingService) propagateMovements(ctx context.Context, repos TransactionalRepositories, movements []*stock.StockMovement, notifications *Notifications) error {
	recalcScope := NewRecalculationScope(func(ctx context.Context, productIDs []uuid.UUID) error {
		return s.reserved.Recalculate(ctx, repos, productIDs, notifications)
	})

	var application *MovementApplication
	var warehouseUpdate *WarehouseStockUpdate

	err := recalcScope.Scoped(ctx, func() error {
		var err error
		application, err = s.stockAggregator.ApplyMovements(ctx, repos, movements, notifications)
		if err != nil {
			return err
		}
		if len(application.ProductIDs) == 0 {
			return nil
		}

		warehouseUpdate, err = s.warehouseStock.ApplyChanges(ctx, repos, application.Changes, notifications)
		if err != nil {
			return err
		}
		if err := s.notAvailable.ApplyChanges(ctx, repos, application.Changes, notifications); err != nil {
			return err
		}

		// Stock moved into or out of order locations shifts the netting
		// against open reservations.
		orderTouched := make([]uuid.UUID, 0)
		seen := make(map[uuid.UUID]struct{})
		for _, change := range application.Changes {
			if change.Location.Kind != stock.LocationKindOrder {
				continue
			}
			if _, ok := seen[change.ProductID]; ok {
				continue
			}
			seen[change.ProductID] = struct{}{}
			orderTouched = append(orderTouched, change.ProductID)
		}
		return recalcScope.Request(ctx, orderTouched)
	})
	if err != nil {
		return err
	}
	if application == nil || len(application.ProductIDs) == 0 {
		return nil
	}

	if err := s.available.Recalculate(ctx, repos, application.ProductIDs, notifications); err != nil {
		return err
	}
	if warehouseUpdate != nil && len(warehouseUpdate.ProductIDs) > 0 {
		return s.reorder.RecalculateForProducts(ctx, repos, warehouseUpdate.ProductIDs, notifications)
	}
	return nil
}
