package persistence

import (
	"context"
	"fmt"

	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByIDs loads the given warehouses. Missing IDs are silently absent from
// the result; callers treat a vanished warehouse as available for sale.
func (r *GormWarehouseRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]stock.Warehouse, error) {
	if len(ids) == 0 {
		return []stock.Warehouse{}, nil
	}
	var warehouses []stock.Warehouse
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

// FindAll loads every warehouse
func (r *GormWarehouseRepository) FindAll(ctx context.Context) ([]stock.Warehouse, error) {
	var warehouses []stock.Warehouse
	if err := r.db.WithContext(ctx).Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

// NotAvailableForSaleIDs lists warehouses flagged offline
func (r *GormWarehouseRepository) NotAvailableForSaleIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&stock.Warehouse{}).
		Where("NOT available_for_sale").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ResolveWarehouses maps warehouse-backed locations to their owning warehouse.
// Locations that are not warehouse-backed, or whose owner no longer exists,
// are absent from the result.
func (r *GormWarehouseRepository) ResolveWarehouses(ctx context.Context, locations []stock.Location) (map[stock.Location]stock.Warehouse, error) {
	idsByKind := make(map[stock.LocationKind][]uuid.UUID)
	for _, location := range locations {
		if !location.IsWarehouseBacked() {
			continue
		}
		idsByKind[location.Kind] = append(idsByKind[location.Kind], location.ReferenceID)
	}

	// location reference -> owning warehouse id, per kind
	owners := make(map[stock.LocationKind]map[uuid.UUID]uuid.UUID)
	for kind, ids := range idsByKind {
		kindOwners, err := r.resolveOwners(ctx, kind, ids)
		if err != nil {
			return nil, err
		}
		owners[kind] = kindOwners
	}

	warehouseIDSet := make(map[uuid.UUID]struct{})
	for _, kindOwners := range owners {
		for _, warehouseID := range kindOwners {
			warehouseIDSet[warehouseID] = struct{}{}
		}
	}
	warehouseIDs := make([]uuid.UUID, 0, len(warehouseIDSet))
	for warehouseID := range warehouseIDSet {
		warehouseIDs = append(warehouseIDs, warehouseID)
	}

	warehouses, err := r.FindByIDs(ctx, warehouseIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]stock.Warehouse, len(warehouses))
	for _, warehouse := range warehouses {
		byID[warehouse.ID] = warehouse
	}

	result := make(map[stock.Location]stock.Warehouse)
	for _, location := range locations {
		kindOwners, ok := owners[location.Kind]
		if !ok {
			continue
		}
		warehouseID, ok := kindOwners[location.ReferenceID]
		if !ok {
			continue
		}
		if warehouse, ok := byID[warehouseID]; ok {
			result[location] = warehouse
		}
	}
	return result, nil
}

// resolveOwners maps location reference IDs of one kind to warehouse IDs
func (r *GormWarehouseRepository) resolveOwners(ctx context.Context, kind stock.LocationKind, ids []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	owners := make(map[uuid.UUID]uuid.UUID, len(ids))
	if len(ids) == 0 {
		return owners, nil
	}

	if kind == stock.LocationKindWarehouse {
		// The location references the warehouse itself. Keep only IDs that
		// still exist.
		var existing []uuid.UUID
		if err := r.db.WithContext(ctx).
			Model(&stock.Warehouse{}).
			Where("id IN ?", ids).
			Pluck("id", &existing).Error; err != nil {
			return nil, err
		}
		for _, id := range existing {
			owners[id] = id
		}
		return owners, nil
	}

	model, err := ownedLocationModel(kind)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID          uuid.UUID
		WarehouseID uuid.UUID
	}
	if err := r.db.WithContext(ctx).
		Model(model).
		Select("id, warehouse_id").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		owners[row.ID] = row.WarehouseID
	}
	return owners, nil
}

// OwnedLocationIDs lists the goods receipts or stock containers a warehouse
// currently owns.
func (r *GormWarehouseRepository) OwnedLocationIDs(ctx context.Context, warehouseID uuid.UUID, kind stock.LocationKind) ([]uuid.UUID, error) {
	model, err := ownedLocationModel(kind)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(model).
		Where("warehouse_id = ?", warehouseID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func ownedLocationModel(kind stock.LocationKind) (any, error) {
	switch kind {
	case stock.LocationKindBinLocation:
		return &stock.BinLocation{}, nil
	case stock.LocationKindGoodsReceipt:
		return &stock.GoodsReceipt{}, nil
	case stock.LocationKindStockContainer:
		return &stock.StockContainer{}, nil
	default:
		return nil, fmt.Errorf("location kind %s is not owned by a warehouse", kind)
	}
}

// Ensure GormWarehouseRepository implements WarehouseRepository
var _ stock.WarehouseRepository = (*GormWarehouseRepository)(nil)
