package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWarehouseStockRepository implements WarehouseStockRepository using GORM
type GormWarehouseStockRepository struct {
	db        *gorm.DB
	chunkSize int
}

// NewGormWarehouseStockRepository creates a new GormWarehouseStockRepository
func NewGormWarehouseStockRepository(db *gorm.DB, chunkSize int) *GormWarehouseStockRepository {
	return &GormWarehouseStockRepository{db: db, chunkSize: chunkSize}
}

// EnsureExists guarantees a zero-quantity row per pair. Conflicting inserts
// from concurrent transactions are ignored, which makes the call race-safe.
func (r *GormWarehouseStockRepository) EnsureExists(ctx context.Context, pairs []stock.ProductWarehousePair) error {
	if len(pairs) == 0 {
		return nil
	}

	rows := make([]*stock.WarehouseStock, 0, len(pairs))
	for _, pair := range pairs {
		rows = append(rows, stock.NewWarehouseStock(pair.ProductID, uuid.Nil, pair.WarehouseID))
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, r.chunkSize).Error
}

// FindByProducts loads all rollup rows of the products
func (r *GormWarehouseStockRepository) FindByProducts(ctx context.Context, productIDs []uuid.UUID) ([]stock.WarehouseStock, error) {
	if len(productIDs) == 0 {
		return []stock.WarehouseStock{}, nil
	}
	var rows []stock.WarehouseStock
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByWarehouse loads all rollup rows of one warehouse
func (r *GormWarehouseStockRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]stock.WarehouseStock, error) {
	var rows []stock.WarehouseStock
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyDelta adjusts one rollup row, creating it when missing
func (r *GormWarehouseStockRepository) ApplyDelta(ctx context.Context, productID, productVersionID, warehouseID uuid.UUID, delta int64) error {
	if delta == 0 {
		return nil
	}

	row := stock.NewWarehouseStock(productID, productVersionID, warehouseID)
	row.Quantity = delta
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":           gorm.Expr("warehouse_stocks.quantity + ?", delta),
				"product_version_id": productVersionID,
				"updated_at":         row.UpdatedAt,
			}),
		}).
		Create(row).Error
}

// ReplaceForProducts overwrites rollups for the products. Rows without a
// recomputed quantity are reset to zero, not deleted, so row existence holds.
func (r *GormWarehouseStockRepository) ReplaceForProducts(ctx context.Context, productIDs []uuid.UUID, rows []*stock.WarehouseStock) error {
	if len(productIDs) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).
		Model(&stock.WarehouseStock{}).
		Where("product_id IN ?", productIDs).
		Update("quantity", 0).Error; err != nil {
		return err
	}

	for _, row := range rows {
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"quantity":           row.Quantity,
					"product_version_id": row.ProductVersionID,
					"updated_at":         row.UpdatedAt,
				}),
			}).
			Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormWarehouseStockRepository implements WarehouseStockRepository
var _ stock.WarehouseStockRepository = (*GormWarehouseStockRepository)(nil)
