package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/order"
	"github.com/erp/stockengine/internal/domain/stock"
)

// TransactionScope provides transactional access to the accounting
// repositories. All repository operations inside one Execute call share the
// same database transaction and commit or roll back atomically. On transient
// conflicts (deadlock, serialization failure) Execute re-runs fn from the
// start, so fn must be safe to repeat.
type TransactionScope interface {
	// Execute runs fn inside a transaction. An error from fn rolls the
	// transaction back; success commits it.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the accounting repositories
// within one transaction.
type TransactionalRepositories interface {
	// MovementRepo returns the append-only ledger repository
	MovementRepo() stock.StockMovementRepository
	// StockRepo returns the on-hand row repository
	StockRepo() stock.StockRepository
	// WarehouseStockRepo returns the per-warehouse rollup repository
	WarehouseStockRepo() stock.WarehouseStockRepository
	// ProductStockRepo returns the per-product aggregate repository
	ProductStockRepo() stock.ProductStockRepository
	// WarehouseRepo returns warehouse reference data and location resolution
	WarehouseRepo() stock.WarehouseRepository
	// ProductConfigRepo returns catalog configuration reads
	ProductConfigRepo() stock.ProductConfigRepository
	// ProductWarehouseConfigRepo returns the reorder-point configuration repository
	ProductWarehouseConfigRepo() stock.ProductWarehouseConfigurationRepository
	// OrderReader returns the read-only order query surface
	OrderReader() order.Reader
}

// NoOpTransactionScope runs the function without a real transaction. Used in
// tests with in-memory repositories.
type NoOpTransactionScope struct {
	movementRepo               stock.StockMovementRepository
	stockRepo                  stock.StockRepository
	warehouseStockRepo         stock.WarehouseStockRepository
	productStockRepo           stock.ProductStockRepository
	warehouseRepo              stock.WarehouseRepository
	productConfigRepo          stock.ProductConfigRepository
	productWarehouseConfigRepo stock.ProductWarehouseConfigurationRepository
	orderReader                order.Reader
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories.
func NewNoOpTransactionScope(
	movementRepo stock.StockMovementRepository,
	stockRepo stock.StockRepository,
	warehouseStockRepo stock.WarehouseStockRepository,
	productStockRepo stock.ProductStockRepository,
	warehouseRepo stock.WarehouseRepository,
	productConfigRepo stock.ProductConfigRepository,
	productWarehouseConfigRepo stock.ProductWarehouseConfigurationRepository,
	orderReader order.Reader,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		movementRepo:               movementRepo,
		stockRepo:                  stockRepo,
		warehouseStockRepo:         warehouseStockRepo,
		productStockRepo:           productStockRepo,
		warehouseRepo:              warehouseRepo,
		productConfigRepo:          productConfigRepo,
		productWarehouseConfigRepo: productWarehouseConfigRepo,
		orderReader:                orderReader,
	}
}

// Execute runs fn without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) MovementRepo() stock.StockMovementRepository { return s.movementRepo }
func (s *NoOpTransactionScope) StockRepo() stock.StockRepository            { return s.stockRepo }
func (s *NoOpTransactionScope) WarehouseStockRepo() stock.WarehouseStockRepository {
	return s.warehouseStockRepo
}
func (s *NoOpTransactionScope) ProductStockRepo() stock.ProductStockRepository {
	return s.productStockRepo
}
func (s *NoOpTransactionScope) WarehouseRepo() stock.WarehouseRepository { return s.warehouseRepo }
func (s *NoOpTransactionScope) ProductConfigRepo() stock.ProductConfigRepository {
	return s.productConfigRepo
}
func (s *NoOpTransactionScope) ProductWarehouseConfigRepo() stock.ProductWarehouseConfigurationRepository {
	return s.productWarehouseConfigRepo
}
func (s *NoOpTransactionScope) OrderReader() order.Reader { return s.orderReader }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
