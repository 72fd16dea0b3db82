package stock

import (
	"time"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductStock is the per-product accounting aggregate: the derived integer
// quantities every downstream consumer reads. One row per product.
//
// AvailableStock may go negative, representing oversell. The other quantities
// are non-negative at rest; transient negativity is tolerated mid-computation.
type ProductStock struct {
	shared.BaseAggregateRoot
	ProductID                uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ProductVersionID         uuid.UUID `gorm:"type:uuid;not null"`
	PhysicalStock            int64     `gorm:"not null;default:0"`
	InternalReservedStock    int64     `gorm:"not null;default:0"`
	ExternalReservedStock    int64     `gorm:"not null;default:0"`
	StockNotAvailableForSale int64     `gorm:"not null;default:0"`
	AvailableStock           int64     `gorm:"not null;default:0"`
	Available                bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ProductStock) TableName() string {
	return "product_stocks"
}

// NewProductStock creates the zero-valued aggregate for a product
func NewProductStock(productID, productVersionID uuid.UUID) *ProductStock {
	return &ProductStock{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		ProductVersionID:  productVersionID,
		Available:         true,
	}
}

// ReservedStock is the total promised quantity, internal plus external
func (p *ProductStock) ReservedStock() int64 {
	return p.InternalReservedStock + p.ExternalReservedStock
}

// RecalculateAvailableStock derives the sellable quantity from the three
// inputs. The result may be negative (oversell).
func (p *ProductStock) RecalculateAvailableStock() {
	p.AvailableStock = p.PhysicalStock - p.StockNotAvailableForSale - p.ReservedStock()
	p.UpdatedAt = time.Now()
}

// ApplyAvailabilityPolicy derives the purchasability flag: closeout products
// are available only while enough sellable stock covers the minimum purchase;
// everything else is always purchasable regardless of stock level.
func (p *ProductStock) ApplyAvailabilityPolicy(policy AvailabilityPolicy) {
	if policy.IsCloseout {
		p.Available = p.AvailableStock >= policy.MinPurchase
	} else {
		p.Available = true
	}
	p.UpdatedAt = time.Now()
}

// AvailabilityPolicy is the resolved closeout/min-purchase configuration of a
// product, after variant inheritance.
type AvailabilityPolicy struct {
	IsCloseout  bool
	MinPurchase int64
}

// DefaultMinPurchase applies when neither the product nor its parent
// configures a minimum purchase quantity.
const DefaultMinPurchase int64 = 1

// ProductConfig is the sales configuration of a product as written by the
// catalog. Nil fields inherit from the parent product (variants).
type ProductConfig struct {
	ProductID    uuid.UUID
	ParentID     *uuid.UUID
	IsCloseout   *bool
	MinPurchase  *int64
	BatchTracked bool
}

// ResolveAvailabilityPolicy resolves a product's policy, falling back to the
// parent product's configuration for unset fields.
func ResolveAvailabilityPolicy(own ProductConfig, parent *ProductConfig) AvailabilityPolicy {
	policy := AvailabilityPolicy{MinPurchase: DefaultMinPurchase}

	switch {
	case own.IsCloseout != nil:
		policy.IsCloseout = *own.IsCloseout
	case parent != nil && parent.IsCloseout != nil:
		policy.IsCloseout = *parent.IsCloseout
	}

	switch {
	case own.MinPurchase != nil:
		policy.MinPurchase = *own.MinPurchase
	case parent != nil && parent.MinPurchase != nil:
		policy.MinPurchase = *parent.MinPurchase
	}

	return policy
}

// ReservedStockValue carries the outcome of a reserved-stock recompute for
// one product. Recompute is "set", not "merge": products without qualifying
// orders get an explicit zero.
type ReservedStockValue struct {
	ProductID uuid.UUID
	Internal  int64
	External  int64
}
