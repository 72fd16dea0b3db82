package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// productConfigModel is the persistence shape of the catalog configuration
// the accounting engine reads. The catalog service owns the table; the engine
// never writes it.
type productConfigModel struct {
	ProductID    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ParentID     *uuid.UUID `gorm:"type:uuid"`
	IsCloseout   *bool
	MinPurchase  *int64
	BatchTracked bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (productConfigModel) TableName() string {
	return "product_configs"
}

func (m productConfigModel) toDomain() stock.ProductConfig {
	return stock.ProductConfig{
		ProductID:    m.ProductID,
		ParentID:     m.ParentID,
		IsCloseout:   m.IsCloseout,
		MinPurchase:  m.MinPurchase,
		BatchTracked: m.BatchTracked,
	}
}

// GormProductConfigRepository implements ProductConfigRepository using GORM
type GormProductConfigRepository struct {
	db *gorm.DB
}

// NewGormProductConfigRepository creates a new GormProductConfigRepository
func NewGormProductConfigRepository(db *gorm.DB) *GormProductConfigRepository {
	return &GormProductConfigRepository{db: db}
}

// ResolvePolicies resolves closeout/min-purchase per product including parent
// inheritance for variants. Products without a configuration row resolve to
// the default policy.
func (r *GormProductConfigRepository) ResolvePolicies(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]stock.AvailabilityPolicy, error) {
	configs, err := r.findByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	parentIDSet := make(map[uuid.UUID]struct{})
	for _, config := range configs {
		if config.ParentID != nil {
			parentIDSet[*config.ParentID] = struct{}{}
		}
	}
	parentIDs := make([]uuid.UUID, 0, len(parentIDSet))
	for parentID := range parentIDSet {
		parentIDs = append(parentIDs, parentID)
	}

	parentConfigs, err := r.findByProductIDs(ctx, parentIDs)
	if err != nil {
		return nil, err
	}
	parents := make(map[uuid.UUID]stock.ProductConfig, len(parentConfigs))
	for _, config := range parentConfigs {
		parents[config.ProductID] = config.toDomain()
	}

	policies := make(map[uuid.UUID]stock.AvailabilityPolicy, len(configs))
	for _, config := range configs {
		var parent *stock.ProductConfig
		if config.ParentID != nil {
			if p, ok := parents[*config.ParentID]; ok {
				parent = &p
			}
		}
		policies[config.ProductID] = stock.ResolveAvailabilityPolicy(config.toDomain(), parent)
	}
	return policies, nil
}

// BatchTracked reports which of the products require per-batch stock
func (r *GormProductConfigRepository) BatchTracked(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	configs, err := r.findByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]bool, len(configs))
	for _, config := range configs {
		result[config.ProductID] = config.BatchTracked
	}
	return result, nil
}

// AllProductIDs lists every known product
func (r *GormProductConfigRepository) AllProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&productConfigModel{}).
		Pluck("product_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormProductConfigRepository) findByProductIDs(ctx context.Context, productIDs []uuid.UUID) ([]productConfigModel, error) {
	if len(productIDs) == 0 {
		return []productConfigModel{}, nil
	}
	var configs []productConfigModel
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Ensure GormProductConfigRepository implements ProductConfigRepository
var _ stock.ProductConfigRepository = (*GormProductConfigRepository)(nil)
