package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of a sales order
type OrderState string

const (
	StateOpen       OrderState = "open"
	StateInProgress OrderState = "in_progress"
	StateCompleted  OrderState = "completed"
	StateCancelled  OrderState = "cancelled"
)

// IsTerminal reports whether the order no longer binds stock
func (s OrderState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// DeliveryState is the lifecycle state of a delivery
type DeliveryState string

const (
	DeliveryStateOpen      DeliveryState = "open"
	DeliveryStateShipped   DeliveryState = "shipped"
	DeliveryStateCancelled DeliveryState = "cancelled"
	DeliveryStateReturned  DeliveryState = "returned"
)

// IsDone reports whether the delivery no longer needs stock held back
func (s DeliveryState) IsDone() bool {
	return s == DeliveryStateShipped || s == DeliveryStateCancelled
}

// LineItem is a product position of an order as the reserved-stock
// computation sees it. ReturnedQuantity aggregates completed return orders
// referencing this line item.
type LineItem struct {
	ID                          uuid.UUID
	OrderID                     uuid.UUID
	ProductID                   uuid.UUID
	Quantity                    int64
	ExternallyFulfilledQuantity int64
	ReturnedQuantity            int64
}

// OpenQuantity is the quantity this line item still requires from stock
func (li LineItem) OpenQuantity() int64 {
	open := li.Quantity - li.ExternallyFulfilledQuantity
	if open < 0 {
		return 0
	}
	return open
}

// Delivery is a shipment of an order. ShippingCost decides which delivery is
// primary when an order has several.
type Delivery struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	State        DeliveryState
	ShippingCost decimal.Decimal
}

// Order is the read model the reserved-stock computation consumes: state,
// deliveries and line items loaded together.
type Order struct {
	ID         uuid.UUID
	Number     string
	State      OrderState
	Deliveries []Delivery
	LineItems  []LineItem
}

// PrimaryDelivery picks the delivery with the highest shipping cost. Ties
// break toward the lowest delivery id so the choice is stable across runs.
// Returns nil when the order has no deliveries.
func (o *Order) PrimaryDelivery() *Delivery {
	var primary *Delivery
	for i := range o.Deliveries {
		d := &o.Deliveries[i]
		if primary == nil {
			primary = d
			continue
		}
		switch d.ShippingCost.Cmp(primary.ShippingCost) {
		case 1:
			primary = d
		case 0:
			if d.ID.String() < primary.ID.String() {
				primary = d
			}
		}
	}
	return primary
}

// BindsStock reports whether the order still holds a reservation claim:
// non-terminal state, and either no deliveries at all (legacy and digital
// orders ship nothing) or a primary delivery that is not done yet.
func (o *Order) BindsStock() bool {
	if o.State.IsTerminal() {
		return false
	}
	primary := o.PrimaryDelivery()
	if primary == nil {
		return true
	}
	return !primary.State.IsDone()
}
