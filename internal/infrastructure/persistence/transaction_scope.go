package persistence

import (
	"context"

	appstock "github.com/erp/stockengine/internal/application/stock"
	"github.com/erp/stockengine/internal/domain/order"
	"github.com/erp/stockengine/internal/domain/stock"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Transient conflicts (deadlock, serialization failure) re-run the unit of
// work from the start, which is why the application layer resets its
// collected notifications at the top of every Execute body.
type GormTransactionScope struct {
	db         *Database
	maxRetries int
	chunkSize  int
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *Database, maxRetries, chunkSize int) *GormTransactionScope {
	return &GormTransactionScope{db: db, maxRetries: maxRetries, chunkSize: chunkSize}
}

// Execute runs the given function within a retryable database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appstock.TransactionalRepositories) error) error {
	return s.db.RunInRetryableTransaction(ctx, s.maxRetries, func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx, chunkSize: s.chunkSize}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx        *gorm.DB
	chunkSize int
}

// MovementRepo returns the ledger repository scoped to the current transaction
func (r *gormTransactionalRepositories) MovementRepo() stock.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx, r.chunkSize)
}

// StockRepo returns the on-hand row repository scoped to the current transaction
func (r *gormTransactionalRepositories) StockRepo() stock.StockRepository {
	return NewGormStockRepository(r.tx, r.chunkSize)
}

// WarehouseStockRepo returns the rollup repository scoped to the current transaction
func (r *gormTransactionalRepositories) WarehouseStockRepo() stock.WarehouseStockRepository {
	return NewGormWarehouseStockRepository(r.tx, r.chunkSize)
}

// ProductStockRepo returns the aggregate repository scoped to the current transaction
func (r *gormTransactionalRepositories) ProductStockRepo() stock.ProductStockRepository {
	return NewGormProductStockRepository(r.tx, r.chunkSize)
}

// WarehouseRepo returns the warehouse reference repository scoped to the current transaction
func (r *gormTransactionalRepositories) WarehouseRepo() stock.WarehouseRepository {
	return NewGormWarehouseRepository(r.tx)
}

// ProductConfigRepo returns the catalog configuration repository scoped to the current transaction
func (r *gormTransactionalRepositories) ProductConfigRepo() stock.ProductConfigRepository {
	return NewGormProductConfigRepository(r.tx)
}

// ProductWarehouseConfigRepo returns the reorder-point repository scoped to the current transaction
func (r *gormTransactionalRepositories) ProductWarehouseConfigRepo() stock.ProductWarehouseConfigurationRepository {
	return NewGormProductWarehouseConfigurationRepository(r.tx)
}

// OrderReader returns the order query surface scoped to the current transaction
func (r *gormTransactionalRepositories) OrderReader() order.Reader {
	return NewGormOrderReader(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appstock.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appstock.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
