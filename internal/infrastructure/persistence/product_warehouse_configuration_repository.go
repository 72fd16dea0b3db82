package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductWarehouseConfigurationRepository implements
// ProductWarehouseConfigurationRepository using GORM.
type GormProductWarehouseConfigurationRepository struct {
	db *gorm.DB
}

// NewGormProductWarehouseConfigurationRepository creates a new repository
func NewGormProductWarehouseConfigurationRepository(db *gorm.DB) *GormProductWarehouseConfigurationRepository {
	return &GormProductWarehouseConfigurationRepository{db: db}
}

// FindByProducts loads all configurations of the products
func (r *GormProductWarehouseConfigurationRepository) FindByProducts(ctx context.Context, productIDs []uuid.UUID) ([]*stock.ProductWarehouseConfiguration, error) {
	if len(productIDs) == 0 {
		return []*stock.ProductWarehouseConfiguration{}, nil
	}
	var configs []*stock.ProductWarehouseConfiguration
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// FindByWarehouses loads all configurations of the warehouses
func (r *GormProductWarehouseConfigurationRepository) FindByWarehouses(ctx context.Context, warehouseIDs []uuid.UUID) ([]*stock.ProductWarehouseConfiguration, error) {
	if len(warehouseIDs) == 0 {
		return []*stock.ProductWarehouseConfiguration{}, nil
	}
	var configs []*stock.ProductWarehouseConfiguration
	if err := r.db.WithContext(ctx).
		Where("warehouse_id IN ?", warehouseIDs).
		Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// Save persists the given configurations
func (r *GormProductWarehouseConfigurationRepository) Save(ctx context.Context, configs []*stock.ProductWarehouseConfiguration) error {
	for _, config := range configs {
		if err := r.db.WithContext(ctx).Save(config).Error; err != nil {
			return err
		}
	}
	return nil
}

// Ensure GormProductWarehouseConfigurationRepository implements the interface
var _ stock.ProductWarehouseConfigurationRepository = (*GormProductWarehouseConfigurationRepository)(nil)
