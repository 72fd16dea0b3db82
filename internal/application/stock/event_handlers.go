package stock

import (
	"context"
	"fmt"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/domain/stock"
	"go.uber.org/zap"
)

// OrderWrittenHandler recomputes reserved stock when the order workflow wrote
// orders, deliveries, line items or returns touching the given products.
type OrderWrittenHandler struct {
	service *StockAccountingService
	logger  *zap.Logger
}

// NewOrderWrittenHandler creates the handler
func NewOrderWrittenHandler(service *StockAccountingService, logger *zap.Logger) *OrderWrittenHandler {
	return &OrderWrittenHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderWrittenHandler) EventTypes() []string {
	return []string{stock.EventTypeOrderWritten}
}

// Handle processes an order written event
func (h *OrderWrittenHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*stock.OrderWrittenEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", event, event.EventType())
	}
	return h.service.RecalculateReservedStock(ctx, e.ProductIDs)
}

// WarehouseWrittenHandler reacts to warehouse administration writes,
// in particular availability flag flips.
type WarehouseWrittenHandler struct {
	service *StockAccountingService
	logger  *zap.Logger
}

// NewWarehouseWrittenHandler creates the handler
func NewWarehouseWrittenHandler(service *StockAccountingService, logger *zap.Logger) *WarehouseWrittenHandler {
	return &WarehouseWrittenHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *WarehouseWrittenHandler) EventTypes() []string {
	return []string{stock.EventTypeWarehouseWritten}
}

// Handle processes a warehouse written event
func (h *WarehouseWrittenHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*stock.WarehouseWrittenEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", event, event.EventType())
	}
	return h.service.HandleWarehouseWritten(ctx, e.WarehouseID, e.FlagFlipped(), e.IsAvailableForSale)
}

// ProductWrittenHandler reacts to catalog writes that may change closeout or
// min-purchase configuration.
type ProductWrittenHandler struct {
	service *StockAccountingService
	logger  *zap.Logger
}

// NewProductWrittenHandler creates the handler
func NewProductWrittenHandler(service *StockAccountingService, logger *zap.Logger) *ProductWrittenHandler {
	return &ProductWrittenHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ProductWrittenHandler) EventTypes() []string {
	return []string{stock.EventTypeProductWritten}
}

// Handle processes a product written event
func (h *ProductWrittenHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*stock.ProductWrittenEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", event, event.EventType())
	}
	return h.service.HandleProductWritten(ctx, e.ProductIDs)
}

// LocationReassignedHandler reacts to goods receipts and stock containers
// moving between warehouses.
type LocationReassignedHandler struct {
	service *StockAccountingService
	logger  *zap.Logger
}

// NewLocationReassignedHandler creates the handler
func NewLocationReassignedHandler(service *StockAccountingService, logger *zap.Logger) *LocationReassignedHandler {
	return &LocationReassignedHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *LocationReassignedHandler) EventTypes() []string {
	return []string{
		stock.EventTypeGoodsReceiptWarehouseChanged,
		stock.EventTypeStockContainerWarehouseChanged,
	}
}

// Handle processes a location reassignment event
func (h *LocationReassignedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*stock.LocationWarehouseChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", event, event.EventType())
	}
	return h.service.HandleLocationReassigned(ctx, e.LocationKind, e.LocationID, e.OldWarehouseID, e.NewWarehouseID)
}
