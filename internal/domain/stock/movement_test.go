package stock

import (
	"errors"
	"testing"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockMovement(t *testing.T) {
	warehouse := WarehouseLocation(uuid.New())
	bin := BinLocationLocation(uuid.New())

	t.Run("should create a valid movement", func(t *testing.T) {
		m, err := NewStockMovement(uuid.New(), uuid.New(), 5, warehouse, bin)
		require.NoError(t, err)
		assert.Equal(t, int64(5), m.Quantity)
		assert.False(t, m.IsNoOp())
	})

	t.Run("should reject negative quantity", func(t *testing.T) {
		_, err := NewStockMovement(uuid.New(), uuid.New(), -1, warehouse, bin)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("should reject nil product", func(t *testing.T) {
		_, err := NewStockMovement(uuid.Nil, uuid.New(), 1, warehouse, bin)
		assert.ErrorIs(t, err, ErrInvalidProduct)
	})

	t.Run("should reject invalid locations", func(t *testing.T) {
		_, err := NewStockMovement(uuid.New(), uuid.New(), 1, Location{Kind: LocationKindWarehouse}, bin)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
	})
}

func TestStockChanges(t *testing.T) {
	productID := uuid.New()
	warehouse := WarehouseLocation(uuid.New())
	bin := BinLocationLocation(uuid.New())

	t.Run("should emit source and destination deltas", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 7, warehouse, bin)
		require.NoError(t, err)

		changes := m.StockChanges()
		require.Len(t, changes, 2)
		assert.Equal(t, int64(-7), changes[0].Delta)
		assert.Equal(t, warehouse, changes[0].Location)
		assert.Equal(t, int64(7), changes[1].Delta)
		assert.Equal(t, bin, changes[1].Location)
	})

	t.Run("no-op movement yields no changes", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 7, warehouse, warehouse)
		require.NoError(t, err)
		assert.True(t, m.IsNoOp())
		assert.Empty(t, m.StockChanges())
	})
}

func TestPhysicalStockDelta(t *testing.T) {
	productID := uuid.New()
	warehouse := WarehouseLocation(uuid.New())
	bin := BinLocationLocation(uuid.New())

	t.Run("inbound from initialization increases physical stock", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 10, InitializationLocation(), warehouse)
		require.NoError(t, err)
		assert.Equal(t, int64(10), m.PhysicalStockDelta())
	})

	t.Run("outbound to return order decreases physical stock", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 4, warehouse, ReturnOrderLocation(uuid.New(), uuid.New()))
		require.NoError(t, err)
		assert.Equal(t, int64(-4), m.PhysicalStockDelta())
	})

	t.Run("internal relocation leaves physical stock untouched", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 4, warehouse, bin)
		require.NoError(t, err)
		assert.Equal(t, int64(0), m.PhysicalStockDelta())
	})
}

func TestWithBatchItems(t *testing.T) {
	productID := uuid.New()
	warehouse := WarehouseLocation(uuid.New())
	bin := BinLocationLocation(uuid.New())

	t.Run("should accept a covering split", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 10, warehouse, bin)
		require.NoError(t, err)

		batchA, batchB := uuid.New(), uuid.New()
		m, err = m.WithBatchItems(map[uuid.UUID]int64{batchA: 6, batchB: 4})
		require.NoError(t, err)
		assert.True(t, m.HasBatchDetail())
		assert.Equal(t, int64(6), m.BatchQuantities()[batchA])
	})

	t.Run("should reject a split not covering the quantity", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 10, warehouse, bin)
		require.NoError(t, err)

		_, err = m.WithBatchItems(map[uuid.UUID]int64{uuid.New(): 6})
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "BATCH_CONSISTENCY_VIOLATION", domainErr.Code)
	})

	t.Run("should reject negative batch quantities", func(t *testing.T) {
		m, err := NewStockMovement(productID, uuid.New(), 2, warehouse, bin)
		require.NoError(t, err)

		_, err = m.WithBatchItems(map[uuid.UUID]int64{uuid.New(): 3, uuid.New(): -1})
		assert.Error(t, err)
	})
}
