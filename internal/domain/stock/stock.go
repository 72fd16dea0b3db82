package stock

import (
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
)

// Stock is an on-hand row: the current quantity of a product at a location.
// Rows are created lazily on the first movement referencing the location and
// deleted again once the quantity returns to zero, except pinned rows
// (default bin locations that must survive for configuration reasons).
//
// Quantity is signed: unknown/external pseudo-locations may go negative to
// represent units outside tracked control. A negative quantity on a warehouse
// or bin location indicates an inconsistency the engine compensates for.
type Stock struct {
	shared.BaseEntity
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_product"`
	ProductVersionID uuid.UUID `gorm:"type:uuid;not null"`
	Location         Location  `gorm:"embedded;embeddedPrefix:location_"`
	Quantity         int64     `gorm:"not null;default:0"`
	Pinned           bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Stock) TableName() string {
	return "stocks"
}

// NewStock creates a stock row for a product at a location
func NewStock(productID, productVersionID uuid.UUID, location Location, quantity int64) *Stock {
	return &Stock{
		BaseEntity:       shared.NewBaseEntity(),
		ProductID:        productID,
		ProductVersionID: productVersionID,
		Location:         location,
		Quantity:         quantity,
	}
}

// IsDeletable returns true when the row carries no quantity and is not pinned
func (s *Stock) IsDeletable() bool {
	return s.Quantity == 0 && !s.Pinned
}

// IsNegativeOnHand reports a warehouse/bin row that went below zero
func (s *Stock) IsNegativeOnHand() bool {
	return s.Quantity < 0 && s.Location.IsWarehouseRelevant()
}

// LocationQuantity is an aggregation result: quantity of a product grouped by
// location, e.g. the recomputed ledger sum for one (product, location) pair.
type LocationQuantity struct {
	ProductID        uuid.UUID
	ProductVersionID uuid.UUID
	Location         Location
	Quantity         int64
}

// OrderProductKey identifies the on-hand quantity a product has inside an
// order-type location, used when netting reserved stock.
type OrderProductKey struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
}
