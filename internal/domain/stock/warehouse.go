package stock

import (
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
)

// Warehouse is the reference entity stock locations resolve to. The
// AvailableForSale flag decides whether on-hand stock in the warehouse (and
// in goods receipts and stock containers it owns) counts as sellable.
type Warehouse struct {
	shared.BaseEntity
	Name             string `gorm:"type:varchar(100);not null"`
	Code             string `gorm:"type:varchar(30);not null;uniqueIndex"`
	AvailableForSale bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// BinLocation is a storage place inside a warehouse
type BinLocation struct {
	shared.BaseEntity
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Code        string    `gorm:"type:varchar(50);not null"`
	// Default bin locations keep their zero-quantity stock rows alive so
	// product-to-bin assignments survive an empty shelf.
	Default bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (BinLocation) TableName() string {
	return "bin_locations"
}

// GoodsReceipt is an inbound document that temporarily holds stock until it
// is put away. It belongs to a warehouse and can be reassigned.
type GoodsReceipt struct {
	shared.BaseEntity
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Number      string    `gorm:"type:varchar(50);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (GoodsReceipt) TableName() string {
	return "goods_receipts"
}

// StockContainer is a movable carrier (e.g. a picking trolley) holding stock
// while it belongs to a warehouse.
type StockContainer struct {
	shared.BaseEntity
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	Number      string    `gorm:"type:varchar(50);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (StockContainer) TableName() string {
	return "stock_containers"
}
