package handler

import (
	"errors"
	"time"

	appstock "github.com/erp/stockengine/internal/application/stock"
	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/erp/stockengine/internal/infrastructure/cache"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/erp/stockengine/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockHandler exposes the accounting engine over HTTP: appending ledger
// movements, triggering recomputations and reading the derived quantities.
type StockHandler struct {
	BaseHandler
	service  *appstock.StockAccountingService
	scope    appstock.TransactionScope
	cache    cache.AvailabilityCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(
	service *appstock.StockAccountingService,
	scope appstock.TransactionScope,
	availabilityCache cache.AvailabilityCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *StockHandler {
	return &StockHandler{
		service:  service,
		scope:    scope,
		cache:    availabilityCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// RegisterRoutes registers the stock routes on the API group
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stockGroup := rg.Group("/stock")

	stockGroup.POST("/movements", h.RecordMovements)
	stockGroup.POST("/movements/compensations", h.CompensateNegativeStock)

	stockGroup.POST("/recalculations", h.Recalculate)
	stockGroup.POST("/recalculations/reservations", h.RecalculateReservations)
	stockGroup.POST("/recalculations/reorder", h.RecalculateReorder)

	stockGroup.GET("/products/:id", h.GetProductStock)
	stockGroup.GET("/products/:id/warehouses", h.GetProductWarehouseStocks)
	stockGroup.GET("/products/:id/reorder", h.GetProductReorderConfigurations)
	stockGroup.GET("/warehouses/:id", h.GetWarehouseStocks)
}

// RecordMovements appends a batch of ledger movements atomically
func (h *StockHandler) RecordMovements(c *gin.Context) {
	var req dto.RecordMovementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	movements, err := req.ToDomain()
	if err != nil {
		h.HandleInputError(c, err)
		return
	}

	if err := h.service.RecordMovements(c.Request.Context(), movements); err != nil {
		h.HandleError(c, err)
		return
	}

	movementIDs := make([]uuid.UUID, 0, len(movements))
	for _, movement := range movements {
		movementIDs = append(movementIDs, movement.ID)
	}
	h.Created(c, dto.RecordMovementsResponse{
		MovementIDs: movementIDs,
		Count:       len(movementIDs),
	})
}

// CompensateNegativeStock records corrective movements for negative
// warehouse and bin rows of the given products
func (h *StockHandler) CompensateNegativeStock(c *gin.Context) {
	productIDs, ok := h.bindProductIDs(c)
	if !ok {
		return
	}

	if err := h.service.CompensateNegativeWarehouseStock(c.Request.Context(), productIDs); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Recalculate rebuilds all derived quantities of the given products from the
// ledger and live order state
func (h *StockHandler) Recalculate(c *gin.Context) {
	productIDs, ok := h.bindProductIDs(c)
	if !ok {
		return
	}

	if err := h.service.RecalculateProducts(c.Request.Context(), productIDs); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RecalculateReservations recomputes reserved stock (and dependent available
// stock) of the given products
func (h *StockHandler) RecalculateReservations(c *gin.Context) {
	productIDs, ok := h.bindProductIDs(c)
	if !ok {
		return
	}

	if err := h.service.RecalculateReservedStock(c.Request.Context(), productIDs); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RecalculateReorder refreshes the derived reorder shortfalls of the given
// products
func (h *StockHandler) RecalculateReorder(c *gin.Context) {
	productIDs, ok := h.bindProductIDs(c)
	if !ok {
		return
	}

	if err := h.service.HandleReorderConfigurationWritten(c.Request.Context(), productIDs); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetProductStock returns the per-product accounting aggregate, served from
// the availability cache when fresh
func (h *StockHandler) GetProductStock(c *gin.Context) {
	productID, ok := h.bindID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if cached, err := h.cache.Get(ctx, productID); err == nil && cached != nil {
		h.Success(c, dto.NewProductStockResponse(cached))
		return
	} else if err != nil {
		h.logger.Warn("availability cache read failed",
			zap.String("product_id", productID.String()),
			zap.Error(err),
		)
	}

	var productStock *stock.ProductStock
	err := h.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		rows, err := repos.ProductStockRepo().FindByProducts(ctx, []uuid.UUID{productID}, false)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			productStock = rows[0]
		}
		return nil
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if productStock == nil {
		h.NotFound(c, "Product stock not found")
		return
	}

	if err := h.cache.Set(ctx, productStock, h.cacheTTL); err != nil {
		h.logger.Warn("availability cache write failed",
			zap.String("product_id", productID.String()),
			zap.Error(err),
		)
	}
	h.Success(c, dto.NewProductStockResponse(productStock))
}

// GetProductWarehouseStocks returns the per-warehouse rollups of a product
func (h *StockHandler) GetProductWarehouseStocks(c *gin.Context) {
	productID, ok := h.bindID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var rows []stock.WarehouseStock
	err := h.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		var err error
		rows, err = repos.WarehouseStockRepo().FindByProducts(ctx, []uuid.UUID{productID})
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.WarehouseStockResponse, 0, len(rows))
	for i := range rows {
		responses = append(responses, dto.NewWarehouseStockResponse(&rows[i]))
	}
	h.Success(c, responses)
}

// GetProductReorderConfigurations returns the reorder mappings of a product
// including the maintained shortfall
func (h *StockHandler) GetProductReorderConfigurations(c *gin.Context) {
	productID, ok := h.bindID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var configs []*stock.ProductWarehouseConfiguration
	err := h.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		var err error
		configs, err = repos.ProductWarehouseConfigRepo().FindByProducts(ctx, []uuid.UUID{productID})
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.ReorderConfigurationResponse, 0, len(configs))
	for _, config := range configs {
		responses = append(responses, dto.NewReorderConfigurationResponse(config))
	}
	h.Success(c, responses)
}

// GetWarehouseStocks returns all rollup rows of a warehouse
func (h *StockHandler) GetWarehouseStocks(c *gin.Context) {
	warehouseID, ok := h.bindID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var rows []stock.WarehouseStock
	err := h.scope.Execute(ctx, func(repos appstock.TransactionalRepositories) error {
		var err error
		rows, err = repos.WarehouseStockRepo().FindByWarehouse(ctx, warehouseID)
		return err
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]dto.WarehouseStockResponse, 0, len(rows))
	for i := range rows {
		responses = append(responses, dto.NewWarehouseStockResponse(&rows[i]))
	}
	h.Success(c, responses)
}

// handleBindingError reports failed field validations with per-field details
// and anything else as an unparseable body
func (h *StockHandler) handleBindingError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		middleware.HandleValidationError(c, validationErrs)
		return
	}
	h.InvalidJSON(c, err.Error())
}

// bindID parses the :id path parameter
func (h *StockHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// bindProductIDs parses a product-ID list request body
func (h *StockHandler) bindProductIDs(c *gin.Context) ([]uuid.UUID, bool) {
	var req dto.ProductIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return nil, false
	}
	productIDs, err := req.ToDomain()
	if err != nil {
		h.BadRequest(c, err.Error())
		return nil, false
	}
	return productIDs, true
}
