package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/erp/stockengine/internal/infrastructure/cache"
	"github.com/erp/stockengine/internal/infrastructure/persistence"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/erp/stockengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newStockTestServer(t *testing.T) (*gin.Engine, *gorm.DB, cache.AvailabilityCache) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&stock.ProductStock{},
		&stock.WarehouseStock{},
		&stock.ProductWarehouseConfiguration{},
	))

	availabilityCache := cache.NewInMemoryAvailabilityCache()
	t.Cleanup(func() { _ = availabilityCache.Close() })

	scope := persistence.NewGormTransactionScope(&persistence.Database{DB: db}, 1, 100)
	stockHandler := NewStockHandler(nil, scope, availabilityCache, time.Minute, zap.NewNop())

	engine := gin.New()
	stockHandler.RegisterRoutes(engine.Group("/api/v1"))
	return engine, db, availabilityCache
}

func doRequest(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func TestStockHandlerGetProductStock(t *testing.T) {
	t.Run("returns the persisted aggregate and fills the cache", func(t *testing.T) {
		engine, db, availabilityCache := newStockTestServer(t)

		productStock := stock.NewProductStock(uuid.New(), uuid.New())
		productStock.PhysicalStock = 20
		productStock.InternalReservedStock = 3
		productStock.StockNotAvailableForSale = 5
		productStock.AvailableStock = 12
		require.NoError(t, db.Create(productStock).Error)

		recorder := doRequest(engine, http.MethodGet, "/api/v1/stock/products/"+productStock.ProductID.String(), nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		resp := decodeResponse(t, recorder)
		assert.True(t, resp.Success)
		data, _ := json.Marshal(resp.Data)
		var body dto.ProductStockResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, productStock.ProductID, body.ProductID)
		assert.Equal(t, int64(20), body.PhysicalStock)
		assert.Equal(t, int64(3), body.ReservedStock)
		assert.Equal(t, int64(12), body.AvailableStock)
		assert.True(t, body.Available)

		cached, err := availabilityCache.Get(context.Background(), productStock.ProductID)
		require.NoError(t, err)
		require.NotNil(t, cached)
		assert.Equal(t, int64(12), cached.AvailableStock)
	})

	t.Run("serves a cached aggregate without touching the database", func(t *testing.T) {
		engine, _, availabilityCache := newStockTestServer(t)

		productStock := stock.NewProductStock(uuid.New(), uuid.New())
		productStock.AvailableStock = 7
		require.NoError(t, availabilityCache.Set(context.Background(), productStock, 0))

		recorder := doRequest(engine, http.MethodGet, "/api/v1/stock/products/"+productStock.ProductID.String(), nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		resp := decodeResponse(t, recorder)
		data, _ := json.Marshal(resp.Data)
		var body dto.ProductStockResponse
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, int64(7), body.AvailableStock)
	})

	t.Run("unknown product yields 404", func(t *testing.T) {
		engine, _, _ := newStockTestServer(t)

		recorder := doRequest(engine, http.MethodGet, "/api/v1/stock/products/"+uuid.NewString(), nil)
		require.Equal(t, http.StatusNotFound, recorder.Code)

		resp := decodeResponse(t, recorder)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("malformed product id yields 400", func(t *testing.T) {
		engine, _, _ := newStockTestServer(t)

		recorder := doRequest(engine, http.MethodGet, "/api/v1/stock/products/not-a-uuid", nil)
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestStockHandlerGetProductWarehouseStocks(t *testing.T) {
	engine, db, _ := newStockTestServer(t)

	productID := uuid.New()
	warehouseA, warehouseB := uuid.New(), uuid.New()
	rowA := stock.NewWarehouseStock(productID, uuid.New(), warehouseA)
	rowA.Quantity = 9
	rowB := stock.NewWarehouseStock(productID, uuid.New(), warehouseB)
	rowB.Quantity = 4
	require.NoError(t, db.Create(rowA).Error)
	require.NoError(t, db.Create(rowB).Error)

	recorder := doRequest(engine, http.MethodGet, "/api/v1/stock/products/"+productID.String()+"/warehouses", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeResponse(t, recorder)
	data, _ := json.Marshal(resp.Data)
	var body []dto.WarehouseStockResponse
	require.NoError(t, json.Unmarshal(data, &body))
	require.Len(t, body, 2)

	quantities := map[uuid.UUID]int64{}
	for _, row := range body {
		quantities[row.WarehouseID] = row.Quantity
	}
	assert.Equal(t, int64(9), quantities[warehouseA])
	assert.Equal(t, int64(4), quantities[warehouseB])
}

func TestStockHandlerGetProductReorderConfigurations(t *testing.T) {
	engine, db, _ := newStockTestServer(t)

	productID := uuid.New()
	reorderPoint, below := int64(50), int64(8)
	config := &stock.ProductWarehouseConfiguration{
		ProductID:              productID,
		WarehouseID:            uuid.New(),
		ReorderPoint:           &reorderPoint,
		StockBelowReorderPoint: &below,
	}
	config.ID = uuid.New()
	require.NoError(t, db.Create(config).Error)

	recorder := doRequest(engine, http.MethodGet, "/api/v1/stock/products/"+productID.String()+"/reorder", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeResponse(t, recorder)
	data, _ := json.Marshal(resp.Data)
	var body []dto.ReorderConfigurationResponse
	require.NoError(t, json.Unmarshal(data, &body))
	require.Len(t, body, 1)
	require.NotNil(t, body[0].StockBelowReorderPoint)
	assert.Equal(t, int64(8), *body[0].StockBelowReorderPoint)
	assert.True(t, body[0].BelowReorderPoint)
}

func TestStockHandlerRecordMovementsValidation(t *testing.T) {
	t.Run("rejects an empty movement batch with field details", func(t *testing.T) {
		engine, _, _ := newStockTestServer(t)

		recorder := doRequest(engine, http.MethodPost, "/api/v1/stock/movements",
			map[string]any{"movements": []any{}})
		require.Equal(t, http.StatusBadRequest, recorder.Code)

		resp := decodeResponse(t, recorder)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "movements", resp.Error.Details[0].Field)
	})

	t.Run("rejects a malformed body as invalid JSON", func(t *testing.T) {
		engine, _, _ := newStockTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/movements",
			strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)
		require.Equal(t, http.StatusBadRequest, recorder.Code)

		resp := decodeResponse(t, recorder)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	})

	t.Run("rejects a structurally invalid location as a business error", func(t *testing.T) {
		engine, _, _ := newStockTestServer(t)

		// Order locations need a version id.
		body := map[string]any{
			"movements": []any{map[string]any{
				"product_id": uuid.NewString(),
				"quantity":   5,
				"source":     map[string]any{"kind": "initialization"},
				"destination": map[string]any{
					"kind":         "order",
					"reference_id": uuid.NewString(),
				},
			}},
		}
		recorder := doRequest(engine, http.MethodPost, "/api/v1/stock/movements", body)
		require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

		resp := decodeResponse(t, recorder)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidLocation, resp.Error.Code)
	})
}

func TestStockHandlerRecalculateValidation(t *testing.T) {
	engine, _, _ := newStockTestServer(t)

	for _, path := range []string{
		"/api/v1/stock/recalculations",
		"/api/v1/stock/recalculations/reservations",
		"/api/v1/stock/recalculations/reorder",
		"/api/v1/stock/movements/compensations",
	} {
		recorder := doRequest(engine, http.MethodPost, path,
			map[string]any{"product_ids": []string{"nope"}})
		assert.Equal(t, http.StatusBadRequest, recorder.Code, fmt.Sprintf("path %s", path))
	}
}
