package stock

import (
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductWarehouseConfiguration holds per-(product, warehouse) settings,
// currently the reorder point. StockBelowReorderPoint is maintained by the
// engine: reorderPoint - currentWarehouseStock, nil while no reorder point is
// configured or the warehouse stock row does not exist.
type ProductWarehouseConfiguration struct {
	shared.BaseEntity
	ProductID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_warehouse_config,priority:1"`
	WarehouseID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_warehouse_config,priority:2"`
	DefaultBinLocationID  *uuid.UUID `gorm:"type:uuid"`
	ReorderPoint          *int64
	StockBelowReorderPoint *int64
}

// TableName returns the table name for GORM
func (ProductWarehouseConfiguration) TableName() string {
	return "product_warehouse_configurations"
}

// RecalculateStockBelowReorderPoint updates the derived shortfall. stock is
// nil when no warehouse stock row exists for the mapping.
func (c *ProductWarehouseConfiguration) RecalculateStockBelowReorderPoint(stock *int64) {
	if c.ReorderPoint == nil || stock == nil {
		c.StockBelowReorderPoint = nil
		return
	}
	below := *c.ReorderPoint - *stock
	c.StockBelowReorderPoint = &below
}

// IsBelowReorderPoint returns true when a shortfall is currently recorded
func (c *ProductWarehouseConfiguration) IsBelowReorderPoint() bool {
	return c.StockBelowReorderPoint != nil && *c.StockBelowReorderPoint > 0
}
