package stock

import (
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
)

// WarehouseStock is the per-(product, warehouse) rollup of Stock rows whose
// location resolves to that warehouse (directly or through bin-location
// membership). Rows are created eagerly with zero quantity for every
// product x warehouse combination so consumers can rely on row existence.
type WarehouseStock struct {
	shared.BaseEntity
	ProductID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_stock_product_warehouse,priority:1"`
	ProductVersionID uuid.UUID `gorm:"type:uuid;not null"`
	WarehouseID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_stock_product_warehouse,priority:2;index"`
	Quantity         int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (WarehouseStock) TableName() string {
	return "warehouse_stocks"
}

// NewWarehouseStock creates a zero-quantity rollup row
func NewWarehouseStock(productID, productVersionID, warehouseID uuid.UUID) *WarehouseStock {
	return &WarehouseStock{
		BaseEntity:       shared.NewBaseEntity(),
		ProductID:        productID,
		ProductVersionID: productVersionID,
		WarehouseID:      warehouseID,
	}
}

// ProductWarehousePair keys a (product, warehouse) combination
type ProductWarehousePair struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
}
