package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements StockMovementRepository using GORM.
// The ledger is append-only: no update or delete paths exist.
type GormStockMovementRepository struct {
	db        *gorm.DB
	chunkSize int
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB, chunkSize int) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db, chunkSize: chunkSize}
}

// Create appends ledger entries including their batch items
func (r *GormStockMovementRepository) Create(ctx context.Context, movements []*stock.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(movements, r.chunkSize).Error
}

// FindByIDs loads movements with batch items
func (r *GormStockMovementRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*stock.StockMovement, error) {
	if len(ids) == 0 {
		return []*stock.StockMovement{}, nil
	}
	var movements []*stock.StockMovement
	if err := r.db.WithContext(ctx).
		Preload("BatchItems").
		Where("id IN ?", ids).
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// locationQuantityRow is the scan target for ledger aggregations
type locationQuantityRow struct {
	ProductID             uuid.UUID
	ProductVersionID      uuid.UUID
	LocationKind          string
	LocationReferenceID   uuid.UUID
	LocationVersionID     uuid.UUID
	LocationTechnicalName string
	Quantity              int64
}

func (row locationQuantityRow) toLocationQuantity() stock.LocationQuantity {
	return stock.LocationQuantity{
		ProductID:        row.ProductID,
		ProductVersionID: row.ProductVersionID,
		Location: stock.Location{
			Kind:          stock.LocationKind(row.LocationKind),
			ReferenceID:   row.LocationReferenceID,
			VersionID:     row.LocationVersionID,
			TechnicalName: row.LocationTechnicalName,
		},
		Quantity: row.Quantity,
	}
}

// SumByProductAndLocation recomputes current quantities from the whole ledger:
// inbound minus outbound quantity grouped by (product, location). Zero-sum
// groups are omitted.
func (r *GormStockMovementRepository) SumByProductAndLocation(ctx context.Context, productIDs []uuid.UUID) ([]stock.LocationQuantity, error) {
	if len(productIDs) == 0 {
		return []stock.LocationQuantity{}, nil
	}

	const query = `
		SELECT product_id,
		       MAX(product_version_id::text)::uuid AS product_version_id,
		       location_kind,
		       location_reference_id,
		       location_version_id,
		       location_technical_name,
		       SUM(quantity) AS quantity
		FROM (
			SELECT product_id, product_version_id,
			       destination_kind           AS location_kind,
			       destination_reference_id   AS location_reference_id,
			       destination_version_id     AS location_version_id,
			       destination_technical_name AS location_technical_name,
			       quantity
			FROM stock_movements
			WHERE product_id IN ?
			UNION ALL
			SELECT product_id, product_version_id,
			       source_kind           AS location_kind,
			       source_reference_id   AS location_reference_id,
			       source_version_id     AS location_version_id,
			       source_technical_name AS location_technical_name,
			       -quantity
			FROM stock_movements
			WHERE product_id IN ?
		) entries
		GROUP BY product_id, location_kind, location_reference_id, location_version_id, location_technical_name
		HAVING SUM(quantity) <> 0`

	var rows []locationQuantityRow
	if err := r.db.WithContext(ctx).Raw(query, productIDs, productIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]stock.LocationQuantity, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toLocationQuantity())
	}
	return result, nil
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ stock.StockMovementRepository = (*GormStockMovementRepository)(nil)
