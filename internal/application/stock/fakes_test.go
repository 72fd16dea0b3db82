package stock

import (
	"context"
	"sync"

	"github.com/erp/stockengine/internal/domain/order"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/domain/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}

// memoryStore backs all in-memory repository fakes of this package's tests.
// It mirrors the persistence semantics closely enough that the service layer
// cannot tell the difference: explicit row existence, set-vs-delta updates,
// pinned rows surviving deletion.
type memoryStore struct {
	movements       []*stock.StockMovement
	stocks          map[stockRowKey]*stock.Stock
	warehouseStocks map[stock.ProductWarehousePair]*stock.WarehouseStock
	productStocks   map[uuid.UUID]*stock.ProductStock
	warehouses      map[uuid.UUID]*stock.Warehouse
	binOwners       map[uuid.UUID]uuid.UUID
	receiptOwners   map[uuid.UUID]uuid.UUID
	containerOwners map[uuid.UUID]uuid.UUID
	productConfigs  map[uuid.UUID]stock.ProductConfig
	reorderConfigs  map[stock.ProductWarehousePair]*stock.ProductWarehouseConfiguration
	orders          []*order.Order
}

type stockRowKey struct {
	productID uuid.UUID
	location  stock.Location
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		stocks:          make(map[stockRowKey]*stock.Stock),
		warehouseStocks: make(map[stock.ProductWarehousePair]*stock.WarehouseStock),
		productStocks:   make(map[uuid.UUID]*stock.ProductStock),
		warehouses:      make(map[uuid.UUID]*stock.Warehouse),
		binOwners:       make(map[uuid.UUID]uuid.UUID),
		receiptOwners:   make(map[uuid.UUID]uuid.UUID),
		containerOwners: make(map[uuid.UUID]uuid.UUID),
		productConfigs:  make(map[uuid.UUID]stock.ProductConfig),
		reorderConfigs:  make(map[stock.ProductWarehousePair]*stock.ProductWarehouseConfiguration),
	}
}

func (s *memoryStore) addWarehouse(availableForSale bool) uuid.UUID {
	w := &stock.Warehouse{BaseEntity: shared.NewBaseEntity(), Name: "wh", Code: uuid.NewString()[:8], AvailableForSale: availableForSale}
	s.warehouses[w.ID] = w
	return w.ID
}

func (s *memoryStore) addBinLocation(warehouseID uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.binOwners[id] = warehouseID
	return id
}

func (s *memoryStore) addGoodsReceipt(warehouseID uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.receiptOwners[id] = warehouseID
	return id
}

func (s *memoryStore) addStockContainer(warehouseID uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.containerOwners[id] = warehouseID
	return id
}

func (s *memoryStore) idSet(productIDs []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		set[id] = struct{}{}
	}
	return set
}

type fakeMovementRepo struct{ store *memoryStore }

func (r *fakeMovementRepo) Create(_ context.Context, movements []*stock.StockMovement) error {
	r.store.movements = append(r.store.movements, movements...)
	return nil
}

func (r *fakeMovementRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*stock.StockMovement, error) {
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []*stock.StockMovement
	for _, m := range r.store.movements {
		if _, ok := wanted[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) SumByProductAndLocation(_ context.Context, productIDs []uuid.UUID) ([]stock.LocationQuantity, error) {
	products := r.store.idSet(productIDs)
	type entry struct {
		versionID uuid.UUID
		quantity  int64
	}
	sums := make(map[stockRowKey]*entry)
	var keys []stockRowKey
	apply := func(productID, versionID uuid.UUID, location stock.Location, delta int64) {
		key := stockRowKey{productID: productID, location: location}
		e, ok := sums[key]
		if !ok {
			e = &entry{versionID: versionID}
			sums[key] = e
			keys = append(keys, key)
		}
		e.quantity += delta
	}
	for _, m := range r.store.movements {
		if _, ok := products[m.ProductID]; !ok {
			continue
		}
		apply(m.ProductID, m.ProductVersionID, m.Source, -m.Quantity)
		apply(m.ProductID, m.ProductVersionID, m.Destination, m.Quantity)
	}
	var out []stock.LocationQuantity
	for _, key := range keys {
		if sums[key].quantity == 0 {
			continue
		}
		out = append(out, stock.LocationQuantity{
			ProductID:        key.productID,
			ProductVersionID: sums[key].versionID,
			Location:         key.location,
			Quantity:         sums[key].quantity,
		})
	}
	return out, nil
}

type fakeStockRepo struct{ store *memoryStore }

func (r *fakeStockRepo) FindByProducts(_ context.Context, productIDs []uuid.UUID, _ bool) ([]stock.Stock, error) {
	products := r.store.idSet(productIDs)
	var out []stock.Stock
	for _, row := range r.store.stocks {
		if _, ok := products[row.ProductID]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeStockRepo) ApplyChanges(_ context.Context, changes []stock.StockChange) error {
	for _, change := range changes {
		key := stockRowKey{productID: change.ProductID, location: change.Location}
		row, ok := r.store.stocks[key]
		if !ok {
			row = stock.NewStock(change.ProductID, change.ProductVersionID, change.Location, 0)
			r.store.stocks[key] = row
		}
		row.Quantity += change.Delta
	}
	return nil
}

func (r *fakeStockRepo) ReplaceForProducts(_ context.Context, productIDs []uuid.UUID, rows []*stock.Stock) error {
	products := r.store.idSet(productIDs)
	pinned := make(map[stockRowKey]struct{})
	for key, row := range r.store.stocks {
		if _, ok := products[row.ProductID]; !ok {
			continue
		}
		if row.Pinned {
			pinned[key] = struct{}{}
		}
		delete(r.store.stocks, key)
	}
	for _, row := range rows {
		copied := *row
		key := stockRowKey{productID: row.ProductID, location: row.Location}
		if _, ok := pinned[key]; ok {
			copied.Pinned = true
			delete(pinned, key)
		}
		r.store.stocks[key] = &copied
	}
	for key := range pinned {
		row := stock.NewStock(key.productID, uuid.Nil, key.location, 0)
		row.Pinned = true
		r.store.stocks[key] = row
	}
	return nil
}

func (r *fakeStockRepo) DeleteEmptyRows(_ context.Context, productIDs []uuid.UUID) error {
	products := r.store.idSet(productIDs)
	for key, row := range r.store.stocks {
		if _, ok := products[row.ProductID]; !ok {
			continue
		}
		if row.IsDeletable() {
			delete(r.store.stocks, key)
		}
	}
	return nil
}

func (r *fakeStockRepo) SumInternalByProduct(_ context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	products := r.store.idSet(productIDs)
	out := make(map[uuid.UUID]int64)
	for _, row := range r.store.stocks {
		if _, ok := products[row.ProductID]; !ok {
			continue
		}
		if row.Location.IsInternal() {
			out[row.ProductID] += row.Quantity
		}
	}
	return out, nil
}

func (r *fakeStockRepo) SumByOrderLocations(_ context.Context, orderIDs, productIDs []uuid.UUID) (map[stock.OrderProductKey]int64, error) {
	orders := r.store.idSet(orderIDs)
	products := r.store.idSet(productIDs)
	out := make(map[stock.OrderProductKey]int64)
	for _, row := range r.store.stocks {
		if row.Location.Kind != stock.LocationKindOrder {
			continue
		}
		if _, ok := orders[row.Location.ReferenceID]; !ok {
			continue
		}
		if _, ok := products[row.ProductID]; !ok {
			continue
		}
		out[stock.OrderProductKey{OrderID: row.Location.ReferenceID, ProductID: row.ProductID}] += row.Quantity
	}
	return out, nil
}

func (r *fakeStockRepo) QuantitiesAtLocations(_ context.Context, kind stock.LocationKind, locationIDs []uuid.UUID) ([]stock.LocationQuantity, error) {
	wanted := r.store.idSet(locationIDs)
	var out []stock.LocationQuantity
	for _, row := range r.store.stocks {
		if row.Location.Kind != kind {
			continue
		}
		if _, ok := wanted[row.Location.ReferenceID]; !ok {
			continue
		}
		out = append(out, stock.LocationQuantity{
			ProductID:        row.ProductID,
			ProductVersionID: row.ProductVersionID,
			Location:         row.Location,
			Quantity:         row.Quantity,
		})
	}
	return out, nil
}

type fakeWarehouseStockRepo struct{ store *memoryStore }

func (r *fakeWarehouseStockRepo) EnsureExists(_ context.Context, pairs []stock.ProductWarehousePair) error {
	for _, pair := range pairs {
		if _, ok := r.store.warehouseStocks[pair]; !ok {
			r.store.warehouseStocks[pair] = stock.NewWarehouseStock(pair.ProductID, uuid.Nil, pair.WarehouseID)
		}
	}
	return nil
}

func (r *fakeWarehouseStockRepo) FindByProducts(_ context.Context, productIDs []uuid.UUID) ([]stock.WarehouseStock, error) {
	products := r.store.idSet(productIDs)
	var out []stock.WarehouseStock
	for _, row := range r.store.warehouseStocks {
		if _, ok := products[row.ProductID]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeWarehouseStockRepo) FindByWarehouse(_ context.Context, warehouseID uuid.UUID) ([]stock.WarehouseStock, error) {
	var out []stock.WarehouseStock
	for _, row := range r.store.warehouseStocks {
		if row.WarehouseID == warehouseID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *fakeWarehouseStockRepo) ApplyDelta(_ context.Context, productID, productVersionID, warehouseID uuid.UUID, delta int64) error {
	pair := stock.ProductWarehousePair{ProductID: productID, WarehouseID: warehouseID}
	row, ok := r.store.warehouseStocks[pair]
	if !ok {
		row = stock.NewWarehouseStock(productID, productVersionID, warehouseID)
		r.store.warehouseStocks[pair] = row
	}
	row.Quantity += delta
	return nil
}

func (r *fakeWarehouseStockRepo) ReplaceForProducts(_ context.Context, productIDs []uuid.UUID, rows []*stock.WarehouseStock) error {
	products := r.store.idSet(productIDs)
	for _, row := range r.store.warehouseStocks {
		if _, ok := products[row.ProductID]; ok {
			row.Quantity = 0
		}
	}
	for _, row := range rows {
		pair := stock.ProductWarehousePair{ProductID: row.ProductID, WarehouseID: row.WarehouseID}
		existing, ok := r.store.warehouseStocks[pair]
		if !ok {
			copied := *row
			r.store.warehouseStocks[pair] = &copied
			continue
		}
		existing.Quantity = row.Quantity
	}
	return nil
}

type fakeProductStockRepo struct{ store *memoryStore }

func (r *fakeProductStockRepo) EnsureExists(_ context.Context, productIDs []uuid.UUID) error {
	for _, id := range productIDs {
		if _, ok := r.store.productStocks[id]; !ok {
			r.store.productStocks[id] = stock.NewProductStock(id, uuid.Nil)
		}
	}
	return nil
}

func (r *fakeProductStockRepo) FindByProducts(_ context.Context, productIDs []uuid.UUID, _ bool) ([]*stock.ProductStock, error) {
	var out []*stock.ProductStock
	for _, id := range productIDs {
		if row, ok := r.store.productStocks[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeProductStockRepo) SetPhysicalStock(_ context.Context, quantities map[uuid.UUID]int64) error {
	for productID, qty := range quantities {
		row, ok := r.store.productStocks[productID]
		if !ok {
			row = stock.NewProductStock(productID, uuid.Nil)
			r.store.productStocks[productID] = row
		}
		row.PhysicalStock = qty
	}
	return nil
}

func (r *fakeProductStockRepo) ApplyPhysicalStockDelta(_ context.Context, productID uuid.UUID, delta int64) error {
	row, ok := r.store.productStocks[productID]
	if !ok {
		row = stock.NewProductStock(productID, uuid.Nil)
		r.store.productStocks[productID] = row
	}
	row.PhysicalStock += delta
	return nil
}

func (r *fakeProductStockRepo) SetReservedStock(_ context.Context, values []stock.ReservedStockValue) error {
	for _, value := range values {
		row, ok := r.store.productStocks[value.ProductID]
		if !ok {
			row = stock.NewProductStock(value.ProductID, uuid.Nil)
			r.store.productStocks[value.ProductID] = row
		}
		row.InternalReservedStock = value.Internal
		row.ExternalReservedStock = value.External
	}
	return nil
}

func (r *fakeProductStockRepo) SetNotAvailableForSale(_ context.Context, quantities map[uuid.UUID]int64) error {
	for productID, qty := range quantities {
		row, ok := r.store.productStocks[productID]
		if !ok {
			row = stock.NewProductStock(productID, uuid.Nil)
			r.store.productStocks[productID] = row
		}
		row.StockNotAvailableForSale = qty
	}
	return nil
}

func (r *fakeProductStockRepo) ApplyNotAvailableForSaleDelta(_ context.Context, productID uuid.UUID, delta int64) error {
	row, ok := r.store.productStocks[productID]
	if !ok {
		row = stock.NewProductStock(productID, uuid.Nil)
		r.store.productStocks[productID] = row
	}
	row.StockNotAvailableForSale += delta
	return nil
}

func (r *fakeProductStockRepo) UpdateAvailability(_ context.Context, rows []*stock.ProductStock) error {
	for _, row := range rows {
		stored, ok := r.store.productStocks[row.ProductID]
		if !ok {
			continue
		}
		stored.AvailableStock = row.AvailableStock
		stored.Available = row.Available
	}
	return nil
}

type fakeWarehouseRepo struct{ store *memoryStore }

func (r *fakeWarehouseRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]stock.Warehouse, error) {
	var out []stock.Warehouse
	for _, id := range ids {
		if w, ok := r.store.warehouses[id]; ok {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *fakeWarehouseRepo) FindAll(_ context.Context) ([]stock.Warehouse, error) {
	var out []stock.Warehouse
	for _, w := range r.store.warehouses {
		out = append(out, *w)
	}
	return out, nil
}

func (r *fakeWarehouseRepo) NotAvailableForSaleIDs(_ context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id, w := range r.store.warehouses {
		if !w.AvailableForSale {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *fakeWarehouseRepo) ResolveWarehouses(_ context.Context, locations []stock.Location) (map[stock.Location]stock.Warehouse, error) {
	out := make(map[stock.Location]stock.Warehouse)
	for _, location := range locations {
		var warehouseID uuid.UUID
		var ok bool
		switch location.Kind {
		case stock.LocationKindWarehouse:
			warehouseID, ok = location.ReferenceID, true
		case stock.LocationKindBinLocation:
			warehouseID, ok = r.store.binOwners[location.ReferenceID], true
		case stock.LocationKindGoodsReceipt:
			warehouseID, ok = r.store.receiptOwners[location.ReferenceID], true
		case stock.LocationKindStockContainer:
			warehouseID, ok = r.store.containerOwners[location.ReferenceID], true
		}
		if !ok {
			continue
		}
		if w, found := r.store.warehouses[warehouseID]; found {
			out[location] = *w
		}
	}
	return out, nil
}

func (r *fakeWarehouseRepo) OwnedLocationIDs(_ context.Context, warehouseID uuid.UUID, kind stock.LocationKind) ([]uuid.UUID, error) {
	var owners map[uuid.UUID]uuid.UUID
	switch kind {
	case stock.LocationKindGoodsReceipt:
		owners = r.store.receiptOwners
	case stock.LocationKindStockContainer:
		owners = r.store.containerOwners
	case stock.LocationKindBinLocation:
		owners = r.store.binOwners
	default:
		return nil, nil
	}
	var out []uuid.UUID
	for id, owner := range owners {
		if owner == warehouseID {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeProductConfigRepo struct{ store *memoryStore }

func (r *fakeProductConfigRepo) ResolvePolicies(_ context.Context, productIDs []uuid.UUID) (map[uuid.UUID]stock.AvailabilityPolicy, error) {
	out := make(map[uuid.UUID]stock.AvailabilityPolicy, len(productIDs))
	for _, id := range productIDs {
		config, ok := r.store.productConfigs[id]
		if !ok {
			out[id] = stock.AvailabilityPolicy{MinPurchase: stock.DefaultMinPurchase}
			continue
		}
		var parent *stock.ProductConfig
		if config.ParentID != nil {
			if p, ok := r.store.productConfigs[*config.ParentID]; ok {
				parent = &p
			}
		}
		out[id] = stock.ResolveAvailabilityPolicy(config, parent)
	}
	return out, nil
}

func (r *fakeProductConfigRepo) BatchTracked(_ context.Context, productIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		out[id] = r.store.productConfigs[id].BatchTracked
	}
	return out, nil
}

func (r *fakeProductConfigRepo) AllProductIDs(_ context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id := range r.store.productConfigs {
		out = append(out, id)
	}
	return out, nil
}

type fakeReorderConfigRepo struct{ store *memoryStore }

func (r *fakeReorderConfigRepo) FindByProducts(_ context.Context, productIDs []uuid.UUID) ([]*stock.ProductWarehouseConfiguration, error) {
	products := r.store.idSet(productIDs)
	var out []*stock.ProductWarehouseConfiguration
	for _, config := range r.store.reorderConfigs {
		if _, ok := products[config.ProductID]; ok {
			out = append(out, config)
		}
	}
	return out, nil
}

func (r *fakeReorderConfigRepo) FindByWarehouses(_ context.Context, warehouseIDs []uuid.UUID) ([]*stock.ProductWarehouseConfiguration, error) {
	warehouses := r.store.idSet(warehouseIDs)
	var out []*stock.ProductWarehouseConfiguration
	for _, config := range r.store.reorderConfigs {
		if _, ok := warehouses[config.WarehouseID]; ok {
			out = append(out, config)
		}
	}
	return out, nil
}

func (r *fakeReorderConfigRepo) Save(_ context.Context, configs []*stock.ProductWarehouseConfiguration) error {
	for _, config := range configs {
		pair := stock.ProductWarehousePair{ProductID: config.ProductID, WarehouseID: config.WarehouseID}
		r.store.reorderConfigs[pair] = config
	}
	return nil
}

type fakeOrderReader struct{ store *memoryStore }

func (r *fakeOrderReader) FindOrdersBindingStock(_ context.Context, productIDs []uuid.UUID, _ ...order.QueryCustomizer) ([]*order.Order, error) {
	products := r.store.idSet(productIDs)
	var out []*order.Order
	for _, o := range r.store.orders {
		if o.State.IsTerminal() {
			continue
		}
		for _, item := range o.LineItems {
			if _, ok := products[item.ProductID]; ok {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeOrderReader) FindOrdersByIDs(_ context.Context, orderIDs []uuid.UUID) ([]*order.Order, error) {
	wanted := r.store.idSet(orderIDs)
	var out []*order.Order
	for _, o := range r.store.orders {
		if _, ok := wanted[o.ID]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// capturingPublisher records published events for assertions
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) eventsOfType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *capturingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// testEngine bundles a fully wired service over in-memory fakes
type testEngine struct {
	store     *memoryStore
	scope     *NoOpTransactionScope
	publisher *capturingPublisher
	service   *StockAccountingService
	reserved  *ReservedStockCalculator
	available *AvailableStockCalculator
}

func newTestEngine() *testEngine {
	store := newMemoryStore()
	scope := NewNoOpTransactionScope(
		&fakeMovementRepo{store: store},
		&fakeStockRepo{store: store},
		&fakeWarehouseStockRepo{store: store},
		&fakeProductStockRepo{store: store},
		&fakeWarehouseRepo{store: store},
		&fakeProductConfigRepo{store: store},
		&fakeReorderConfigRepo{store: store},
		&fakeOrderReader{store: store},
	)
	publisher := &capturingPublisher{}
	logger := newTestLogger()
	reserved := NewReservedStockCalculator(logger)
	available := NewAvailableStockCalculator(logger)
	service := NewStockAccountingService(
		scope,
		publisher,
		NewStockAggregator(logger),
		NewWarehouseStockAggregator(logger),
		reserved,
		NewNotAvailableForSaleCalculator(logger),
		available,
		NewReorderPointTracker(logger),
		logger,
	)
	return &testEngine{
		store:     store,
		scope:     scope,
		publisher: publisher,
		service:   service,
		reserved:  reserved,
		available: available,
	}
}
