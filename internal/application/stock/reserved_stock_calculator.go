package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/order"
	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExternalReservedStockProvider contributes reservation amounts sourced
// outside the order workflow (e.g. a marketplace connector). Contributions
// are additive across providers and kept in the separate external field,
// never mixed into internal reserved stock.
type ExternalReservedStockProvider interface {
	ExternalReservedStock(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

// ReservedStockCalculator derives the promised-but-unpicked quantity per
// product from live order state. Only full recompute is supported: the value
// depends on joins over order, delivery and return state that change in ways
// too entangled to delta reliably. Recompute is "set", not "merge"; requested
// products without qualifying orders end at exactly zero.
type ReservedStockCalculator struct {
	logger      *zap.Logger
	providers   []ExternalReservedStockProvider
	customizers []order.QueryCustomizer
}

// NewReservedStockCalculator creates a reserved stock calculator
func NewReservedStockCalculator(logger *zap.Logger) *ReservedStockCalculator {
	return &ReservedStockCalculator{logger: logger}
}

// RegisterProvider adds an external reserved-stock source
func (c *ReservedStockCalculator) RegisterProvider(provider ExternalReservedStockProvider) {
	c.providers = append(c.providers, provider)
}

// RegisterCustomizer adds a predicate/join customizer applied to the order
// query, e.g. to exclude orders managed by an external fulfillment system.
func (c *ReservedStockCalculator) RegisterCustomizer(customizer order.QueryCustomizer) {
	c.customizers = append(c.customizers, customizer)
}

// Recalculate recomputes internal and external reserved stock for the given
// products. An empty product set is a silent no-op.
func (c *ReservedStockCalculator) Recalculate(ctx context.Context, repos TransactionalRepositories, productIDs []uuid.UUID, notifications *Notifications) error {
	if len(productIDs) == 0 {
		return nil
	}

	orders, err := repos.OrderReader().FindOrdersBindingStock(ctx, productIDs, c.customizers...)
	if err != nil {
		return err
	}

	binding := make([]*order.Order, 0, len(orders))
	orderIDs := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		if o.BindsStock() {
			binding = append(binding, o)
			orderIDs = append(orderIDs, o.ID)
		}
	}

	onHandInOrders, err := repos.StockRepo().SumByOrderLocations(ctx, orderIDs, productIDs)
	if err != nil {
		return err
	}

	requested := make(map[uuid.UUID]struct{}, len(productIDs))
	internal := make(map[uuid.UUID]int64, len(productIDs))
	for _, id := range productIDs {
		requested[id] = struct{}{}
		internal[id] = 0
	}

	for _, o := range binding {
		required := make(map[uuid.UUID]int64)
		returned := make(map[uuid.UUID]int64)
		for _, item := range o.LineItems {
			if _, ok := requested[item.ProductID]; !ok {
				continue
			}
			required[item.ProductID] += item.OpenQuantity()
			returned[item.ProductID] += item.ReturnedQuantity
		}
		for productID, requiredQty := range required {
			allocated := onHandInOrders[stock.OrderProductKey{OrderID: o.ID, ProductID: productID}]
			contribution := requiredQty - allocated - returned[productID]
			if contribution > 0 {
				internal[productID] += contribution
			}
		}
	}

	external := make(map[uuid.UUID]int64, len(productIDs))
	for _, provider := range c.providers {
		amounts, err := provider.ExternalReservedStock(ctx, productIDs)
		if err != nil {
			return err
		}
		for productID, amount := range amounts {
			if _, ok := requested[productID]; ok {
				external[productID] += amount
			}
		}
	}

	values := make([]stock.ReservedStockValue, 0, len(productIDs))
	for _, id := range productIDs {
		values = append(values, stock.ReservedStockValue{
			ProductID: id,
			Internal:  internal[id],
			External:  external[id],
		})
	}
	if err := repos.ProductStockRepo().SetReservedStock(ctx, values); err != nil {
		return err
	}

	notifications.Add(stock.NewReservedStockUpdatedEvent(productIDs))

	c.logger.Debug("recalculated reserved stock",
		zap.Int("products", len(productIDs)),
		zap.Int("binding_orders", len(binding)))
	return nil
}
