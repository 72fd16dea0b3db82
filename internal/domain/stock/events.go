package stock

import (
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
)

const AggregateTypeStockAccounting = "StockAccounting"

// Outbound event types: published after the owning transaction committed.
const (
	EventTypeStockUpdatedForMovements         = "StockUpdatedForMovements"
	EventTypeWarehouseStockUpdated            = "WarehouseStockUpdated"
	EventTypeReservedStockUpdated             = "ReservedStockUpdated"
	EventTypeStockNotAvailableForSaleUpdated  = "StockNotAvailableForSaleUpdated"
	EventTypeAvailableStockUpdated            = "AvailableStockUpdated"
	EventTypeStockBelowReorderPointUpdated    = "StockBelowReorderPointUpdated"
)

// Inbound event types: written by upstream collaborators (order workflow,
// warehouse administration, catalog) and consumed by the engine's handlers.
const (
	EventTypeStockMovementsRecorded          = "StockMovementsRecorded"
	EventTypeOrderWritten                    = "OrderWritten"
	EventTypeWarehouseWritten                = "WarehouseWritten"
	EventTypeProductWritten                  = "ProductWritten"
	EventTypeGoodsReceiptWarehouseChanged    = "GoodsReceiptWarehouseChanged"
	EventTypeStockContainerWarehouseChanged  = "StockContainerWarehouseChanged"
)

// StockUpdatedForMovementsEvent reports which products' on-hand rows changed
// because of a batch of ledger entries.
type StockUpdatedForMovementsEvent struct {
	shared.BaseDomainEvent
	ProductIDs  []uuid.UUID `json:"product_ids"`
	MovementIDs []uuid.UUID `json:"movement_ids"`
}

func NewStockUpdatedForMovementsEvent(productIDs, movementIDs []uuid.UUID) *StockUpdatedForMovementsEvent {
	return &StockUpdatedForMovementsEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockUpdatedForMovements, AggregateTypeStockAccounting),
		ProductIDs:      productIDs,
		MovementIDs:     movementIDs,
	}
}

func (e *StockUpdatedForMovementsEvent) EventType() string { return EventTypeStockUpdatedForMovements }

// WarehouseStockUpdatedEvent reports changed per-warehouse rollups. Reorder
// point recomputation downstream depends on it.
type WarehouseStockUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductIDs   []uuid.UUID `json:"product_ids"`
	WarehouseIDs []uuid.UUID `json:"warehouse_ids"`
}

func NewWarehouseStockUpdatedEvent(productIDs, warehouseIDs []uuid.UUID) *WarehouseStockUpdatedEvent {
	return &WarehouseStockUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWarehouseStockUpdated, AggregateTypeStockAccounting),
		ProductIDs:      productIDs,
		WarehouseIDs:    warehouseIDs,
	}
}

func (e *WarehouseStockUpdatedEvent) EventType() string { return EventTypeWarehouseStockUpdated }

// ReservedStockUpdatedEvent reports a completed reserved-stock recompute
type ReservedStockUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductIDs []uuid.UUID `json:"product_ids"`
}

func NewReservedStockUpdatedEvent(productIDs []uuid.UUID) *ReservedStockUpdatedEvent {
	return &ReservedStockUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservedStockUpdated, AggregateTypeStockAccounting),
		ProductIDs:      productIDs,
	}
}

func (e *ReservedStockUpdatedEvent) EventType() string { return EventTypeReservedStockUpdated }

// StockNotAvailableForSaleUpdatedEvent reports changed not-available-for-sale
// quantities.
type StockNotAvailableForSaleUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductIDs []uuid.UUID `json:"product_ids"`
}

func NewStockNotAvailableForSaleUpdatedEvent(productIDs []uuid.UUID) *StockNotAvailableForSaleUpdatedEvent {
	return &StockNotAvailableForSaleUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockNotAvailableForSaleUpdated, AggregateTypeStockAccounting),
		ProductIDs:      productIDs,
	}
}

func (e *StockNotAvailableForSaleUpdatedEvent) EventType() string {
	return EventTypeStockNotAvailableForSaleUpdated
}

// AvailableStockUpdatedEvent reports recomputed sellable quantities; listing
// indexes and caches invalidate on it.
type AvailableStockUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductIDs []uuid.UUID `json:"product_ids"`
}

func NewAvailableStockUpdatedEvent(productIDs []uuid.UUID) *AvailableStockUpdatedEvent {
	return &AvailableStockUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAvailableStockUpdated, AggregateTypeStockAccounting),
		ProductIDs:      productIDs,
	}
}

func (e *AvailableStockUpdatedEvent) EventType() string { return EventTypeAvailableStockUpdated }

// StockBelowReorderPointUpdatedEvent reports recomputed reorder shortfalls
type StockBelowReorderPointUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductIDs   []uuid.UUID `json:"product_ids"`
	WarehouseIDs []uuid.UUID `json:"warehouse_ids"`
}

func NewStockBelowReorderPointUpdatedEvent(productIDs, warehouseIDs []uuid.UUID) *StockBelowReorderPointUpdatedEvent {
	return &StockBelowReorderPointUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowReorderPointUpdated, AggregateTypeStockAccounting),
		ProductIDs:      productIDs,
		WarehouseIDs:    warehouseIDs,
	}
}

func (e *StockBelowReorderPointUpdatedEvent) EventType() string {
	return EventTypeStockBelowReorderPointUpdated
}

// StockMovementsRecordedEvent announces freshly appended ledger entries
type StockMovementsRecordedEvent struct {
	shared.BaseDomainEvent
	MovementIDs []uuid.UUID `json:"movement_ids"`
	ProductIDs  []uuid.UUID `json:"product_ids"`
}

func NewStockMovementsRecordedEvent(movementIDs, productIDs []uuid.UUID) *StockMovementsRecordedEvent {
	return &StockMovementsRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMovementsRecorded, AggregateTypeStockAccounting),
		MovementIDs:     movementIDs,
		ProductIDs:      productIDs,
	}
}

func (e *StockMovementsRecordedEvent) EventType() string { return EventTypeStockMovementsRecorded }

// OrderWrittenEvent announces order/delivery/line-item/return writes touching
// the given products. Reserved stock is recomputed for them.
type OrderWrittenEvent struct {
	shared.BaseDomainEvent
	OrderIDs   []uuid.UUID `json:"order_ids"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

func NewOrderWrittenEvent(orderIDs, productIDs []uuid.UUID) *OrderWrittenEvent {
	return &OrderWrittenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderWritten, AggregateTypeStockAccounting),
		OrderIDs:        orderIDs,
		ProductIDs:      productIDs,
	}
}

func (e *OrderWrittenEvent) EventType() string { return EventTypeOrderWritten }

// WarehouseWrittenEvent carries an explicit before/after snapshot of the
// availability flag so the handler never has to diff change sets itself.
type WarehouseWrittenEvent struct {
	shared.BaseDomainEvent
	WarehouseID         uuid.UUID `json:"warehouse_id"`
	WasAvailableForSale bool      `json:"was_available_for_sale"`
	IsAvailableForSale  bool      `json:"is_available_for_sale"`
}

func NewWarehouseWrittenEvent(warehouseID uuid.UUID, wasAvailable, isAvailable bool) *WarehouseWrittenEvent {
	return &WarehouseWrittenEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeWarehouseWritten, AggregateTypeStockAccounting),
		WarehouseID:         warehouseID,
		WasAvailableForSale: wasAvailable,
		IsAvailableForSale:  isAvailable,
	}
}

func (e *WarehouseWrittenEvent) EventType() string { return EventTypeWarehouseWritten }

// FlagFlipped is true when the event actually changed the availability flag
func (e *WarehouseWrittenEvent) FlagFlipped() bool {
	return e.WasAvailableForSale != e.IsAvailableForSale
}

// ProductWrittenEvent announces catalog writes that may change closeout or
// min-purchase configuration.
type ProductWrittenEvent struct {
	shared.BaseDomainEvent
	ProductIDs []uuid.UUID `json:"product_ids"`
}

func NewProductWrittenEvent(productIDs []uuid.UUID) *ProductWrittenEvent {
	return &ProductWrittenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductWritten, AggregateTypeStockAccounting),
		ProductIDs:      productIDs,
	}
}

func (e *ProductWrittenEvent) EventType() string { return EventTypeProductWritten }

// LocationWarehouseChangedEvent carries the before/after warehouse snapshot
// of a goods receipt or stock container reassignment.
type LocationWarehouseChangedEvent struct {
	shared.BaseDomainEvent
	LocationKind   LocationKind `json:"location_kind"`
	LocationID     uuid.UUID    `json:"location_id"`
	OldWarehouseID uuid.UUID    `json:"old_warehouse_id"`
	NewWarehouseID uuid.UUID    `json:"new_warehouse_id"`
}

func NewGoodsReceiptWarehouseChangedEvent(goodsReceiptID, oldWarehouseID, newWarehouseID uuid.UUID) *LocationWarehouseChangedEvent {
	return &LocationWarehouseChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGoodsReceiptWarehouseChanged, AggregateTypeStockAccounting),
		LocationKind:    LocationKindGoodsReceipt,
		LocationID:      goodsReceiptID,
		OldWarehouseID:  oldWarehouseID,
		NewWarehouseID:  newWarehouseID,
	}
}

func NewStockContainerWarehouseChangedEvent(containerID, oldWarehouseID, newWarehouseID uuid.UUID) *LocationWarehouseChangedEvent {
	return &LocationWarehouseChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockContainerWarehouseChanged, AggregateTypeStockAccounting),
		LocationKind:    LocationKindStockContainer,
		LocationID:      containerID,
		OldWarehouseID:  oldWarehouseID,
		NewWarehouseID:  newWarehouseID,
	}
}

func (e *LocationWarehouseChangedEvent) EventType() string { return e.Type }
