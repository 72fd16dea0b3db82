package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order rows are owned by the order workflow service; the accounting engine
// only reads them. The row models here mirror the columns the reserved-stock
// computation needs.

type orderRow struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Number string
	State  string
}

func (orderRow) TableName() string { return "orders" }

type orderLineItemRow struct {
	ID                          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID                     uuid.UUID `gorm:"type:uuid"`
	ProductID                   uuid.UUID `gorm:"type:uuid"`
	Quantity                    int64
	ExternallyFulfilledQuantity int64
}

func (orderLineItemRow) TableName() string { return "order_line_items" }

type orderDeliveryRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"type:uuid"`
	State        string
	ShippingCost decimal.Decimal `gorm:"type:numeric(12,2)"`
}

func (orderDeliveryRow) TableName() string { return "order_deliveries" }

// GormOrderReader implements order.Reader using GORM
type GormOrderReader struct {
	db *gorm.DB
}

// NewGormOrderReader creates a new GormOrderReader
func NewGormOrderReader(db *gorm.DB) *GormOrderReader {
	return &GormOrderReader{db: db}
}

// FindOrdersBindingStock loads non-terminal orders holding at least one line
// item for the given products. Customizers are applied in order, ANDed
// together. Delivery-state filtering happens in the domain, not here: whether
// an order still binds stock depends on its primary delivery, which SQL
// cannot decide cheaply.
func (r *GormOrderReader) FindOrdersBindingStock(ctx context.Context, productIDs []uuid.UUID, customizers ...order.QueryCustomizer) ([]*order.Order, error) {
	if len(productIDs) == 0 {
		return []*order.Order{}, nil
	}

	query := r.db.WithContext(ctx).
		Table("orders").
		Distinct("orders.id").
		Joins("JOIN order_line_items ON order_line_items.order_id = orders.id").
		Where("orders.state IN ?", []order.OrderState{order.StateOpen, order.StateInProgress}).
		Where("order_line_items.product_id IN ?", productIDs)

	for _, customizer := range customizers {
		for _, join := range customizer.Joins() {
			query = query.Joins("JOIN "+join.Table+" ON "+join.Condition, join.Args...)
		}
		for _, predicate := range customizer.Predicates() {
			query = query.Where(predicate.SQL, predicate.Args...)
		}
	}

	var orderIDs []uuid.UUID
	if err := query.Pluck("orders.id", &orderIDs).Error; err != nil {
		return nil, err
	}
	return r.loadOrders(ctx, orderIDs)
}

// FindOrdersByIDs loads the given orders with deliveries and line items attached
func (r *GormOrderReader) FindOrdersByIDs(ctx context.Context, orderIDs []uuid.UUID) ([]*order.Order, error) {
	return r.loadOrders(ctx, orderIDs)
}

// loadOrders hydrates the order read model: deliveries and line items are
// attached, completed return quantities aggregated onto the line items.
func (r *GormOrderReader) loadOrders(ctx context.Context, orderIDs []uuid.UUID) ([]*order.Order, error) {
	if len(orderIDs) == 0 {
		return []*order.Order{}, nil
	}

	var orderRows []orderRow
	if err := r.db.WithContext(ctx).
		Where("id IN ?", orderIDs).
		Find(&orderRows).Error; err != nil {
		return nil, err
	}

	var lineItemRows []orderLineItemRow
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Find(&lineItemRows).Error; err != nil {
		return nil, err
	}

	var deliveryRows []orderDeliveryRow
	if err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Find(&deliveryRows).Error; err != nil {
		return nil, err
	}

	returned, err := r.returnedQuantities(ctx, lineItemRows)
	if err != nil {
		return nil, err
	}

	orders := make(map[uuid.UUID]*order.Order, len(orderRows))
	result := make([]*order.Order, 0, len(orderRows))
	for _, row := range orderRows {
		o := &order.Order{
			ID:     row.ID,
			Number: row.Number,
			State:  order.OrderState(row.State),
		}
		orders[row.ID] = o
		result = append(result, o)
	}

	for _, row := range lineItemRows {
		o, ok := orders[row.OrderID]
		if !ok {
			continue
		}
		o.LineItems = append(o.LineItems, order.LineItem{
			ID:                          row.ID,
			OrderID:                     row.OrderID,
			ProductID:                   row.ProductID,
			Quantity:                    row.Quantity,
			ExternallyFulfilledQuantity: row.ExternallyFulfilledQuantity,
			ReturnedQuantity:            returned[row.ID],
		})
	}

	for _, row := range deliveryRows {
		o, ok := orders[row.OrderID]
		if !ok {
			continue
		}
		o.Deliveries = append(o.Deliveries, order.Delivery{
			ID:           row.ID,
			OrderID:      row.OrderID,
			State:        order.DeliveryState(row.State),
			ShippingCost: row.ShippingCost,
		})
	}

	return result, nil
}

// returnedQuantities sums completed return quantities per order line item
func (r *GormOrderReader) returnedQuantities(ctx context.Context, lineItems []orderLineItemRow) (map[uuid.UUID]int64, error) {
	if len(lineItems) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	lineItemIDs := make([]uuid.UUID, 0, len(lineItems))
	for _, row := range lineItems {
		lineItemIDs = append(lineItemIDs, row.ID)
	}

	var rows []struct {
		LineItemID uuid.UUID
		Quantity   int64
	}
	const query = `
		SELECT r.order_line_item_id AS line_item_id, SUM(r.quantity) AS quantity
		FROM return_order_line_items r
		JOIN return_orders ro ON ro.id = r.return_order_id
		WHERE ro.state = 'completed' AND r.order_line_item_id IN ?
		GROUP BY r.order_line_item_id`
	if err := r.db.WithContext(ctx).Raw(query, lineItemIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		result[row.LineItemID] = row.Quantity
	}
	return result, nil
}

// Ensure GormOrderReader implements Reader
var _ order.Reader = (*GormOrderReader)(nil)
