package stock

import (
	"fmt"

	"github.com/google/uuid"
)

// LocationKind classifies the typed places where inventory can reside.
type LocationKind string

const (
	LocationKindWarehouse      LocationKind = "warehouse"
	LocationKindBinLocation    LocationKind = "bin_location"
	LocationKindOrder          LocationKind = "order"
	LocationKindGoodsReceipt   LocationKind = "goods_receipt"
	LocationKindStockContainer LocationKind = "stock_container"
	LocationKindReturnOrder    LocationKind = "return_order"
	LocationKindSpecial        LocationKind = "special"
	LocationKindUnknown        LocationKind = "unknown"
	LocationKindInitialization LocationKind = "initialization"
)

// String returns the string representation of LocationKind
func (k LocationKind) String() string {
	return string(k)
}

// IsValid returns true if the location kind is known
func (k LocationKind) IsValid() bool {
	switch k {
	case LocationKindWarehouse,
		LocationKindBinLocation,
		LocationKindOrder,
		LocationKindGoodsReceipt,
		LocationKindStockContainer,
		LocationKindReturnOrder,
		LocationKindSpecial,
		LocationKindUnknown,
		LocationKindInitialization:
		return true
	}
	return false
}

// Location is a value object identifying a stock location. It is comparable:
// two locations are equal iff kind and all identifying fields match, which
// makes Location usable as a map key for grouping stock by place.
//
// ReferenceID is set for id-backed kinds, VersionID additionally for orders
// and return orders, TechnicalName only for special (external) locations.
type Location struct {
	Kind          LocationKind `gorm:"type:varchar(20);not null" json:"kind"`
	ReferenceID   uuid.UUID    `gorm:"type:uuid" json:"reference_id"`
	VersionID     uuid.UUID    `gorm:"type:uuid" json:"version_id"`
	TechnicalName string       `gorm:"type:varchar(64)" json:"technical_name,omitempty"`
}

// WarehouseLocation identifies stock held directly at a warehouse
func WarehouseLocation(warehouseID uuid.UUID) Location {
	return Location{Kind: LocationKindWarehouse, ReferenceID: warehouseID}
}

// BinLocationLocation identifies stock held at a bin location
func BinLocationLocation(binLocationID uuid.UUID) Location {
	return Location{Kind: LocationKindBinLocation, ReferenceID: binLocationID}
}

// OrderLocation identifies stock allocated to an order (picked but not shipped)
func OrderLocation(orderID, orderVersionID uuid.UUID) Location {
	return Location{Kind: LocationKindOrder, ReferenceID: orderID, VersionID: orderVersionID}
}

// GoodsReceiptLocation identifies stock sitting in a goods receipt
func GoodsReceiptLocation(goodsReceiptID uuid.UUID) Location {
	return Location{Kind: LocationKindGoodsReceipt, ReferenceID: goodsReceiptID}
}

// StockContainerLocation identifies stock held in a stock container
func StockContainerLocation(containerID uuid.UUID) Location {
	return Location{Kind: LocationKindStockContainer, ReferenceID: containerID}
}

// ReturnOrderLocation identifies stock announced on a return order
func ReturnOrderLocation(returnOrderID, returnOrderVersionID uuid.UUID) Location {
	return Location{Kind: LocationKindReturnOrder, ReferenceID: returnOrderID, VersionID: returnOrderVersionID}
}

// SpecialLocation identifies an externally managed location by technical name
func SpecialLocation(technicalName string) Location {
	return Location{Kind: LocationKindSpecial, TechnicalName: technicalName}
}

// UnknownLocation is the pseudo-location for units outside tracked control
func UnknownLocation() Location {
	return Location{Kind: LocationKindUnknown}
}

// InitializationLocation is the pseudo-location movements originate from when
// stock is first introduced into the system
func InitializationLocation() Location {
	return Location{Kind: LocationKindInitialization}
}

// IsInternal returns true for locations whose stock counts toward a product's
// physical stock. Return orders, special, unknown and initialization locations
// represent units outside of on-hand control.
func (l Location) IsInternal() bool {
	switch l.Kind {
	case LocationKindWarehouse,
		LocationKindBinLocation,
		LocationKindOrder,
		LocationKindGoodsReceipt,
		LocationKindStockContainer:
		return true
	}
	return false
}

// IsWarehouseRelevant returns true for locations that roll up into
// per-warehouse stock totals.
func (l Location) IsWarehouseRelevant() bool {
	return l.Kind == LocationKindWarehouse || l.Kind == LocationKindBinLocation
}

// IsWarehouseBacked returns true for locations owned by a warehouse, i.e.
// locations whose availability-for-sale follows the owning warehouse's flag.
func (l Location) IsWarehouseBacked() bool {
	switch l.Kind {
	case LocationKindWarehouse,
		LocationKindBinLocation,
		LocationKindGoodsReceipt,
		LocationKindStockContainer:
		return true
	}
	return false
}

// IsStockCreating returns true for pseudo-locations that are sanctioned
// sources/sinks of net quantity change (everything else only redistributes).
func (l Location) IsStockCreating() bool {
	return l.Kind == LocationKindUnknown || l.Kind == LocationKindInitialization
}

// Validate checks the structural invariants of the location
func (l Location) Validate() error {
	if !l.Kind.IsValid() {
		return NewInvalidLocationError(l.Kind)
	}
	switch l.Kind {
	case LocationKindUnknown, LocationKindInitialization:
		if l.ReferenceID != uuid.Nil || l.TechnicalName != "" {
			return NewInvalidLocationError(l.Kind)
		}
	case LocationKindSpecial:
		if l.TechnicalName == "" {
			return NewInvalidLocationError(l.Kind)
		}
	case LocationKindOrder, LocationKindReturnOrder:
		if l.ReferenceID == uuid.Nil || l.VersionID == uuid.Nil {
			return NewInvalidLocationError(l.Kind)
		}
	default:
		if l.ReferenceID == uuid.Nil {
			return NewInvalidLocationError(l.Kind)
		}
	}
	return nil
}

// String returns a short human-readable reference, used in logs
func (l Location) String() string {
	switch l.Kind {
	case LocationKindUnknown, LocationKindInitialization:
		return string(l.Kind)
	case LocationKindSpecial:
		return fmt.Sprintf("special(%s)", l.TechnicalName)
	case LocationKindOrder, LocationKindReturnOrder:
		return fmt.Sprintf("%s(%s@%s)", l.Kind, l.ReferenceID, l.VersionID)
	default:
		return fmt.Sprintf("%s(%s)", l.Kind, l.ReferenceID)
	}
}
