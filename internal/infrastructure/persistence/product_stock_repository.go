package persistence

import (
	"context"
	"time"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductStockRepository implements ProductStockRepository using GORM
type GormProductStockRepository struct {
	db        *gorm.DB
	chunkSize int
}

// NewGormProductStockRepository creates a new GormProductStockRepository
func NewGormProductStockRepository(db *gorm.DB, chunkSize int) *GormProductStockRepository {
	return &GormProductStockRepository{db: db, chunkSize: chunkSize}
}

// EnsureExists guarantees an aggregate row per product, race-safe
func (r *GormProductStockRepository) EnsureExists(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}

	rows := make([]*stock.ProductStock, 0, len(productIDs))
	for _, productID := range productIDs {
		rows = append(rows, stock.NewProductStock(productID, uuid.Nil))
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, r.chunkSize).Error
}

// FindByProducts loads the aggregates; forUpdate acquires exclusive row locks
func (r *GormProductStockRepository) FindByProducts(ctx context.Context, productIDs []uuid.UUID, forUpdate bool) ([]*stock.ProductStock, error) {
	if len(productIDs) == 0 {
		return []*stock.ProductStock{}, nil
	}

	query := r.db.WithContext(ctx).Where("product_id IN ?", productIDs)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []*stock.ProductStock
	if err := query.Order("product_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SetPhysicalStock overwrites physical stock for each product in the map
func (r *GormProductStockRepository) SetPhysicalStock(ctx context.Context, quantities map[uuid.UUID]int64) error {
	for productID, quantity := range quantities {
		if err := r.db.WithContext(ctx).
			Model(&stock.ProductStock{}).
			Where("product_id = ?", productID).
			Updates(map[string]any{
				"physical_stock": quantity,
				"updated_at":     time.Now(),
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ApplyPhysicalStockDelta adjusts one product's physical stock
func (r *GormProductStockRepository) ApplyPhysicalStockDelta(ctx context.Context, productID uuid.UUID, delta int64) error {
	if delta == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&stock.ProductStock{}).
		Where("product_id = ?", productID).
		Updates(map[string]any{
			"physical_stock": gorm.Expr("physical_stock + ?", delta),
			"updated_at":     time.Now(),
		}).Error
}

// SetReservedStock overwrites internal and external reserved stock
func (r *GormProductStockRepository) SetReservedStock(ctx context.Context, values []stock.ReservedStockValue) error {
	for _, value := range values {
		if err := r.db.WithContext(ctx).
			Model(&stock.ProductStock{}).
			Where("product_id = ?", value.ProductID).
			Updates(map[string]any{
				"internal_reserved_stock": value.Internal,
				"external_reserved_stock": value.External,
				"updated_at":              time.Now(),
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// SetNotAvailableForSale overwrites the not-available-for-sale quantity
func (r *GormProductStockRepository) SetNotAvailableForSale(ctx context.Context, quantities map[uuid.UUID]int64) error {
	for productID, quantity := range quantities {
		if err := r.db.WithContext(ctx).
			Model(&stock.ProductStock{}).
			Where("product_id = ?", productID).
			Updates(map[string]any{
				"stock_not_available_for_sale": quantity,
				"updated_at":                   time.Now(),
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ApplyNotAvailableForSaleDelta adjusts one product's value
func (r *GormProductStockRepository) ApplyNotAvailableForSaleDelta(ctx context.Context, productID uuid.UUID, delta int64) error {
	if delta == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&stock.ProductStock{}).
		Where("product_id = ?", productID).
		Updates(map[string]any{
			"stock_not_available_for_sale": gorm.Expr("stock_not_available_for_sale + ?", delta),
			"updated_at":                   time.Now(),
		}).Error
}

// UpdateAvailability persists recomputed available stock and flags
func (r *GormProductStockRepository) UpdateAvailability(ctx context.Context, rows []*stock.ProductStock) error {
	for _, row := range rows {
		if err := r.db.WithContext(ctx).
			Model(&stock.ProductStock{}).
			Where("product_id = ?", row.ProductID).
			Updates(map[string]any{
				"available_stock": row.AvailableStock,
				"available":       row.Available,
				"updated_at":      row.UpdatedAt,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormProductStockRepository implements ProductStockRepository
var _ stock.ProductStockRepository = (*GormProductStockRepository)(nil)
