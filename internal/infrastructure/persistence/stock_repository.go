package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements StockRepository using GORM
type GormStockRepository struct {
	db        *gorm.DB
	chunkSize int
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB, chunkSize int) *GormStockRepository {
	return &GormStockRepository{db: db, chunkSize: chunkSize}
}

// internalLocationKinds are the kinds whose stock counts toward physical stock
var internalLocationKinds = []stock.LocationKind{
	stock.LocationKindWarehouse,
	stock.LocationKindBinLocation,
	stock.LocationKindOrder,
	stock.LocationKindGoodsReceipt,
	stock.LocationKindStockContainer,
}

// FindByProducts loads all rows for the products. forUpdate acquires exclusive
// row locks to serialize concurrent recomputations of the same products.
func (r *GormStockRepository) FindByProducts(ctx context.Context, productIDs []uuid.UUID, forUpdate bool) ([]stock.Stock, error) {
	if len(productIDs) == 0 {
		return []stock.Stock{}, nil
	}

	query := r.db.WithContext(ctx).Where("product_id IN ?", productIDs)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []stock.Stock
	if err := query.Order("product_id, location_kind, location_reference_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyChanges adjusts row quantities with update-first/insert-fallback
// semantics. The caller holds row locks on the products, so the fallback
// insert cannot race another writer of the same row.
func (r *GormStockRepository) ApplyChanges(ctx context.Context, changes []stock.StockChange) error {
	for _, change := range changes {
		if change.Delta == 0 {
			continue
		}

		result := r.db.WithContext(ctx).
			Model(&stock.Stock{}).
			Where(locationConditions("location", change.Location), locationArgs(change.ProductID, change.Location)...).
			Update("quantity", gorm.Expr("quantity + ?", change.Delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			continue
		}

		row := stock.NewStock(change.ProductID, change.ProductVersionID, change.Location, change.Delta)
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReplaceForProducts overwrites all rows of the products with the recomputed
// rows. Pinned rows without a recomputed quantity survive at zero.
func (r *GormStockRepository) ReplaceForProducts(ctx context.Context, productIDs []uuid.UUID, rows []*stock.Stock) error {
	if len(productIDs) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).
		Model(&stock.Stock{}).
		Where("product_id IN ? AND pinned", productIDs).
		Update("quantity", 0).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("product_id IN ? AND NOT pinned", productIDs).
		Delete(&stock.Stock{}).Error; err != nil {
		return err
	}

	for _, row := range rows {
		result := r.db.WithContext(ctx).
			Model(&stock.Stock{}).
			Where(locationConditions("location", row.Location), locationArgs(row.ProductID, row.Location)...).
			Updates(map[string]any{
				"quantity":           row.Quantity,
				"product_version_id": row.ProductVersionID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteEmptyRows drops rows whose quantity reached zero, except pinned rows
func (r *GormStockRepository) DeleteEmptyRows(ctx context.Context, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("product_id IN ? AND quantity = 0 AND NOT pinned", productIDs).
		Delete(&stock.Stock{}).Error
}

// SumInternalByProduct sums on-hand quantity over internal locations per product
func (r *GormStockRepository) SumInternalByProduct(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}

	var rows []struct {
		ProductID uuid.UUID
		Quantity  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.Stock{}).
		Select("product_id, SUM(quantity) AS quantity").
		Where("product_id IN ? AND location_kind IN ?", productIDs, internalLocationKinds).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		result[row.ProductID] = row.Quantity
	}
	return result, nil
}

// SumByOrderLocations returns on-hand quantity inside order locations keyed by
// (order, product).
func (r *GormStockRepository) SumByOrderLocations(ctx context.Context, orderIDs, productIDs []uuid.UUID) (map[stock.OrderProductKey]int64, error) {
	if len(orderIDs) == 0 || len(productIDs) == 0 {
		return map[stock.OrderProductKey]int64{}, nil
	}

	var rows []struct {
		OrderID   uuid.UUID
		ProductID uuid.UUID
		Quantity  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&stock.Stock{}).
		Select("location_reference_id AS order_id, product_id, SUM(quantity) AS quantity").
		Where("location_kind = ? AND location_reference_id IN ? AND product_id IN ?",
			stock.LocationKindOrder, orderIDs, productIDs).
		Group("location_reference_id, product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[stock.OrderProductKey]int64, len(rows))
	for _, row := range rows {
		result[stock.OrderProductKey{OrderID: row.OrderID, ProductID: row.ProductID}] = row.Quantity
	}
	return result, nil
}

// QuantitiesAtLocations returns per-product quantities at the given locations
// of one kind.
func (r *GormStockRepository) QuantitiesAtLocations(ctx context.Context, kind stock.LocationKind, locationIDs []uuid.UUID) ([]stock.LocationQuantity, error) {
	if len(locationIDs) == 0 {
		return []stock.LocationQuantity{}, nil
	}

	var rows []locationQuantityRow
	if err := r.db.WithContext(ctx).
		Model(&stock.Stock{}).
		Select("product_id, product_version_id, location_kind, location_reference_id, location_version_id, location_technical_name, quantity").
		Where("location_kind = ? AND location_reference_id IN ?", kind, locationIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]stock.LocationQuantity, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toLocationQuantity())
	}
	return result, nil
}

// locationConditions builds the WHERE clause matching one (product, location)
// row, with the location columns under the given embedded prefix.
func locationConditions(prefix string, _ stock.Location) string {
	return "product_id = ? AND " + prefix + "_kind = ? AND " + prefix + "_reference_id = ? AND " +
		prefix + "_version_id = ? AND " + prefix + "_technical_name = ?"
}

func locationArgs(productID uuid.UUID, location stock.Location) []any {
	return []any{productID, location.Kind, location.ReferenceID, location.VersionID, location.TechnicalName}
}

// Ensure GormStockRepository implements StockRepository
var _ stock.StockRepository = (*GormStockRepository)(nil)
