package dto

import (
	"time"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
)

// StockLocationRequest identifies a stock location in a request body.
// Structural rules per kind (reference for id-backed kinds, version for
// orders, technical name for special locations) are enforced by the domain.
type StockLocationRequest struct {
	Kind          string `json:"kind" binding:"required"`
	ReferenceID   string `json:"reference_id" binding:"omitempty,uuid"`
	VersionID     string `json:"version_id" binding:"omitempty,uuid"`
	TechnicalName string `json:"technical_name" binding:"omitempty,max=64"`
}

// ToDomain converts the request to a domain location
func (r StockLocationRequest) ToDomain() (stock.Location, error) {
	location := stock.Location{
		Kind:          stock.LocationKind(r.Kind),
		TechnicalName: r.TechnicalName,
	}

	if r.ReferenceID != "" {
		referenceID, err := uuid.Parse(r.ReferenceID)
		if err != nil {
			return stock.Location{}, err
		}
		location.ReferenceID = referenceID
	}
	if r.VersionID != "" {
		versionID, err := uuid.Parse(r.VersionID)
		if err != nil {
			return stock.Location{}, err
		}
		location.VersionID = versionID
	}

	if err := location.Validate(); err != nil {
		return stock.Location{}, err
	}
	return location, nil
}

// BatchItemRequest attributes part of a movement quantity to a batch
type BatchItemRequest struct {
	BatchID  string `json:"batch_id" binding:"required,uuid"`
	Quantity int64  `json:"quantity" binding:"min=0"`
}

// RecordMovementRequest describes one ledger entry to append
type RecordMovementRequest struct {
	ProductID        string               `json:"product_id" binding:"required,uuid"`
	ProductVersionID string               `json:"product_version_id" binding:"omitempty,uuid"`
	Quantity         int64                `json:"quantity" binding:"required,min=1"`
	Source           StockLocationRequest `json:"source" binding:"required"`
	Destination      StockLocationRequest `json:"destination" binding:"required"`
	Comment          string               `json:"comment" binding:"omitempty,max=255"`
	BatchItems       []BatchItemRequest   `json:"batch_items" binding:"omitempty,dive"`
}

// ToDomain converts the request to a validated domain movement
func (r RecordMovementRequest) ToDomain() (*stock.StockMovement, error) {
	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return nil, err
	}
	var productVersionID uuid.UUID
	if r.ProductVersionID != "" {
		productVersionID, err = uuid.Parse(r.ProductVersionID)
		if err != nil {
			return nil, err
		}
	}

	source, err := r.Source.ToDomain()
	if err != nil {
		return nil, err
	}
	destination, err := r.Destination.ToDomain()
	if err != nil {
		return nil, err
	}

	movement, err := stock.NewStockMovement(productID, productVersionID, r.Quantity, source, destination)
	if err != nil {
		return nil, err
	}
	movement.Comment = r.Comment

	if len(r.BatchItems) > 0 {
		quantities := make(map[uuid.UUID]int64, len(r.BatchItems))
		for _, item := range r.BatchItems {
			batchID, err := uuid.Parse(item.BatchID)
			if err != nil {
				return nil, err
			}
			quantities[batchID] += item.Quantity
		}
		if _, err := movement.WithBatchItems(quantities); err != nil {
			return nil, err
		}
	}

	return movement, nil
}

// RecordMovementsRequest appends a batch of movements atomically
type RecordMovementsRequest struct {
	Movements []RecordMovementRequest `json:"movements" binding:"required,min=1,dive"`
}

// ToDomain converts all movements, failing on the first invalid one
func (r RecordMovementsRequest) ToDomain() ([]*stock.StockMovement, error) {
	movements := make([]*stock.StockMovement, 0, len(r.Movements))
	for _, req := range r.Movements {
		movement, err := req.ToDomain()
		if err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, nil
}

// RecordMovementsResponse reports the appended ledger entries
type RecordMovementsResponse struct {
	MovementIDs []uuid.UUID `json:"movement_ids"`
	Count       int         `json:"count"`
}

// ProductIDsRequest names the products an operation applies to
type ProductIDsRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required,min=1,dive,uuid"`
}

// ToDomain parses the product IDs
func (r ProductIDsRequest) ToDomain() ([]uuid.UUID, error) {
	productIDs := make([]uuid.UUID, 0, len(r.ProductIDs))
	for _, raw := range r.ProductIDs {
		productID, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		productIDs = append(productIDs, productID)
	}
	return productIDs, nil
}

// ProductStockResponse is the per-product accounting aggregate as served to
// API consumers
type ProductStockResponse struct {
	ProductID                uuid.UUID `json:"product_id"`
	ProductVersionID         uuid.UUID `json:"product_version_id"`
	PhysicalStock            int64     `json:"physical_stock"`
	InternalReservedStock    int64     `json:"internal_reserved_stock"`
	ExternalReservedStock    int64     `json:"external_reserved_stock"`
	ReservedStock            int64     `json:"reserved_stock"`
	StockNotAvailableForSale int64     `json:"stock_not_available_for_sale"`
	AvailableStock           int64     `json:"available_stock"`
	Available                bool      `json:"available"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// NewProductStockResponse converts the domain aggregate to its API shape
func NewProductStockResponse(productStock *stock.ProductStock) ProductStockResponse {
	return ProductStockResponse{
		ProductID:                productStock.ProductID,
		ProductVersionID:         productStock.ProductVersionID,
		PhysicalStock:            productStock.PhysicalStock,
		InternalReservedStock:    productStock.InternalReservedStock,
		ExternalReservedStock:    productStock.ExternalReservedStock,
		ReservedStock:            productStock.ReservedStock(),
		StockNotAvailableForSale: productStock.StockNotAvailableForSale,
		AvailableStock:           productStock.AvailableStock,
		Available:                productStock.Available,
		UpdatedAt:                productStock.UpdatedAt,
	}
}

// WarehouseStockResponse is one per-warehouse rollup row
type WarehouseStockResponse struct {
	ProductID        uuid.UUID `json:"product_id"`
	ProductVersionID uuid.UUID `json:"product_version_id"`
	WarehouseID      uuid.UUID `json:"warehouse_id"`
	Quantity         int64     `json:"quantity"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewWarehouseStockResponse converts the rollup row to its API shape
func NewWarehouseStockResponse(row *stock.WarehouseStock) WarehouseStockResponse {
	return WarehouseStockResponse{
		ProductID:        row.ProductID,
		ProductVersionID: row.ProductVersionID,
		WarehouseID:      row.WarehouseID,
		Quantity:         row.Quantity,
		UpdatedAt:        row.UpdatedAt,
	}
}

// ReorderConfigurationResponse is a per-(product, warehouse) reorder mapping.
// StockBelowReorderPoint is null while no reorder point is configured or the
// warehouse has no stock row for the product.
type ReorderConfigurationResponse struct {
	ProductID              uuid.UUID  `json:"product_id"`
	WarehouseID            uuid.UUID  `json:"warehouse_id"`
	DefaultBinLocationID   *uuid.UUID `json:"default_bin_location_id,omitempty"`
	ReorderPoint           *int64     `json:"reorder_point"`
	StockBelowReorderPoint *int64     `json:"stock_below_reorder_point"`
	BelowReorderPoint      bool       `json:"below_reorder_point"`
}

// NewReorderConfigurationResponse converts the mapping to its API shape
func NewReorderConfigurationResponse(config *stock.ProductWarehouseConfiguration) ReorderConfigurationResponse {
	return ReorderConfigurationResponse{
		ProductID:              config.ProductID,
		WarehouseID:            config.WarehouseID,
		DefaultBinLocationID:   config.DefaultBinLocationID,
		ReorderPoint:           config.ReorderPoint,
		StockBelowReorderPoint: config.StockBelowReorderPoint,
		BelowReorderPoint:      config.IsBelowReorderPoint(),
	}
}
