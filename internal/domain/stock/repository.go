package stock

import (
	"context"

	"github.com/google/uuid"
)

// StockMovementRepository is the append-only ledger persistence. Entries are
// never updated or deleted; corrections are further movements.
type StockMovementRepository interface {
	// Create appends ledger entries (including their batch items)
	Create(ctx context.Context, movements []*StockMovement) error

	// FindByIDs loads movements with batch items
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*StockMovement, error)

	// SumByProductAndLocation recomputes current quantities from the whole
	// ledger for the given products: sum of inbound minus sum of outbound
	// quantity grouped by (product, location). Zero-sum groups are omitted.
	SumByProductAndLocation(ctx context.Context, productIDs []uuid.UUID) ([]LocationQuantity, error)
}

// StockRepository maintains the on-hand rows projected from the ledger
type StockRepository interface {
	// FindByProducts loads all rows for the products; forUpdate acquires
	// exclusive row locks to serialize concurrent recomputations.
	FindByProducts(ctx context.Context, productIDs []uuid.UUID, forUpdate bool) ([]Stock, error)

	// ApplyChanges adjusts row quantities with update-first/insert-fallback
	// semantics: rows are created lazily when a change references a location
	// without a row.
	ApplyChanges(ctx context.Context, changes []StockChange) error

	// ReplaceForProducts overwrites all rows of the products with the given
	// recomputed rows, keeping pinned rows alive at zero quantity.
	ReplaceForProducts(ctx context.Context, productIDs []uuid.UUID, rows []*Stock) error

	// DeleteEmptyRows drops rows whose quantity reached zero, except pinned
	// default-location rows.
	DeleteEmptyRows(ctx context.Context, productIDs []uuid.UUID) error

	// SumInternalByProduct sums on-hand quantity over internal locations per
	// product (the physical stock).
	SumInternalByProduct(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)

	// SumByOrderLocations returns on-hand quantity inside order-type
	// locations keyed by (order, product), used to net reserved stock.
	SumByOrderLocations(ctx context.Context, orderIDs, productIDs []uuid.UUID) (map[OrderProductKey]int64, error)

	// QuantitiesAtLocations returns per-product quantities at the given
	// locations of one kind (goods receipts, stock containers).
	QuantitiesAtLocations(ctx context.Context, kind LocationKind, locationIDs []uuid.UUID) ([]LocationQuantity, error)
}

// WarehouseStockRepository maintains the per-warehouse rollup rows
type WarehouseStockRepository interface {
	// EnsureExists guarantees a zero-quantity row per pair, race-safe
	// (insert, ignore conflict).
	EnsureExists(ctx context.Context, pairs []ProductWarehousePair) error

	FindByProducts(ctx context.Context, productIDs []uuid.UUID) ([]WarehouseStock, error)
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]WarehouseStock, error)

	// ApplyDelta adjusts one rollup row, creating it when missing
	ApplyDelta(ctx context.Context, productID, productVersionID, warehouseID uuid.UUID, delta int64) error

	// ReplaceForProducts overwrites rollups for the products
	ReplaceForProducts(ctx context.Context, productIDs []uuid.UUID, rows []*WarehouseStock) error
}

// ProductStockRepository maintains the per-product aggregate
type ProductStockRepository interface {
	// EnsureExists guarantees an aggregate row per product, race-safe
	EnsureExists(ctx context.Context, productIDs []uuid.UUID) error

	FindByProducts(ctx context.Context, productIDs []uuid.UUID, forUpdate bool) ([]*ProductStock, error)

	// SetPhysicalStock overwrites physical stock for each product in the map
	SetPhysicalStock(ctx context.Context, quantities map[uuid.UUID]int64) error

	// ApplyPhysicalStockDelta adjusts one product's physical stock
	ApplyPhysicalStockDelta(ctx context.Context, productID uuid.UUID, delta int64) error

	// SetReservedStock overwrites internal and external reserved stock.
	// "Set", not "merge": values carry explicit zeroes.
	SetReservedStock(ctx context.Context, values []ReservedStockValue) error

	// SetNotAvailableForSale overwrites the not-available-for-sale quantity
	SetNotAvailableForSale(ctx context.Context, quantities map[uuid.UUID]int64) error

	// ApplyNotAvailableForSaleDelta adjusts one product's value
	ApplyNotAvailableForSaleDelta(ctx context.Context, productID uuid.UUID, delta int64) error

	// UpdateAvailability persists recomputed available stock and flags
	UpdateAvailability(ctx context.Context, rows []*ProductStock) error
}

// WarehouseRepository reads warehouse reference data and resolves locations
// to their owning warehouse.
type WarehouseRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Warehouse, error)
	FindAll(ctx context.Context) ([]Warehouse, error)

	// NotAvailableForSaleIDs lists warehouses flagged offline
	NotAvailableForSaleIDs(ctx context.Context) ([]uuid.UUID, error)

	// ResolveWarehouses maps warehouse-backed locations to their owning
	// warehouse; locations that are not warehouse-backed are absent from the
	// result.
	ResolveWarehouses(ctx context.Context, locations []Location) (map[Location]Warehouse, error)

	// OwnedLocationIDs lists the goods receipts or stock containers a
	// warehouse currently owns.
	OwnedLocationIDs(ctx context.Context, warehouseID uuid.UUID, kind LocationKind) ([]uuid.UUID, error)
}

// ProductConfigRepository reads catalog configuration relevant to accounting
type ProductConfigRepository interface {
	// ResolvePolicies resolves closeout/min-purchase per product including
	// parent inheritance for variants.
	ResolvePolicies(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]AvailabilityPolicy, error)

	// BatchTracked reports which of the products require per-batch stock
	BatchTracked(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]bool, error)

	// AllProductIDs lists every known product, used when a new warehouse
	// needs eager rollup rows for the full catalog.
	AllProductIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ProductWarehouseConfigurationRepository persists reorder-point mappings
type ProductWarehouseConfigurationRepository interface {
	FindByProducts(ctx context.Context, productIDs []uuid.UUID) ([]*ProductWarehouseConfiguration, error)
	FindByWarehouses(ctx context.Context, warehouseIDs []uuid.UUID) ([]*ProductWarehouseConfiguration, error)
	Save(ctx context.Context, configs []*ProductWarehouseConfiguration) error
}
