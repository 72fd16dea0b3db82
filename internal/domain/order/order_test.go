package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimaryDelivery(t *testing.T) {
	t.Run("should return nil without deliveries", func(t *testing.T) {
		o := &Order{ID: uuid.New(), State: StateOpen}
		assert.Nil(t, o.PrimaryDelivery())
	})

	t.Run("should pick highest shipping cost", func(t *testing.T) {
		cheap := Delivery{ID: uuid.New(), State: DeliveryStateShipped, ShippingCost: decimal.NewFromFloat(3.90)}
		expensive := Delivery{ID: uuid.New(), State: DeliveryStateOpen, ShippingCost: decimal.NewFromFloat(12.50)}
		o := &Order{ID: uuid.New(), State: StateOpen, Deliveries: []Delivery{cheap, expensive}}

		primary := o.PrimaryDelivery()
		require.NotNil(t, primary)
		assert.Equal(t, expensive.ID, primary.ID)
	})

	t.Run("should break cost ties by lowest delivery id", func(t *testing.T) {
		a := Delivery{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), ShippingCost: decimal.NewFromInt(5)}
		b := Delivery{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), ShippingCost: decimal.NewFromInt(5)}

		forward := &Order{Deliveries: []Delivery{a, b}}
		backward := &Order{Deliveries: []Delivery{b, a}}

		require.NotNil(t, forward.PrimaryDelivery())
		assert.Equal(t, a.ID, forward.PrimaryDelivery().ID)
		assert.Equal(t, a.ID, backward.PrimaryDelivery().ID)
	})
}

func TestBindsStock(t *testing.T) {
	t.Run("should not bind stock in terminal states", func(t *testing.T) {
		assert.False(t, (&Order{State: StateCancelled}).BindsStock())
		assert.False(t, (&Order{State: StateCompleted}).BindsStock())
	})

	t.Run("should bind stock without deliveries", func(t *testing.T) {
		assert.True(t, (&Order{State: StateOpen}).BindsStock())
	})

	t.Run("should not bind stock once the primary delivery shipped", func(t *testing.T) {
		o := &Order{
			State: StateInProgress,
			Deliveries: []Delivery{
				{ID: uuid.New(), State: DeliveryStateShipped, ShippingCost: decimal.NewFromInt(9)},
				{ID: uuid.New(), State: DeliveryStateOpen, ShippingCost: decimal.NewFromInt(2)},
			},
		}
		assert.False(t, o.BindsStock())
	})

	t.Run("should bind stock while the primary delivery is open", func(t *testing.T) {
		o := &Order{
			State: StateOpen,
			Deliveries: []Delivery{
				{ID: uuid.New(), State: DeliveryStateOpen, ShippingCost: decimal.NewFromInt(9)},
				{ID: uuid.New(), State: DeliveryStateCancelled, ShippingCost: decimal.NewFromInt(2)},
			},
		}
		assert.True(t, o.BindsStock())
	})
}

func TestLineItemOpenQuantity(t *testing.T) {
	assert.Equal(t, int64(7), LineItem{Quantity: 10, ExternallyFulfilledQuantity: 3}.OpenQuantity())
	assert.Equal(t, int64(0), LineItem{Quantity: 2, ExternallyFulfilledQuantity: 5}.OpenQuantity())
}
