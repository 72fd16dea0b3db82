package stock

import (
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
)

// StockMovement is an append-only ledger entry: a quantity transferred from
// one stock location to another for a product. Movements are immutable once
// persisted; corrections are made with further movements.
type StockMovement struct {
	shared.BaseEntity
	ProductID        uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movement_product"`
	ProductVersionID uuid.UUID `gorm:"type:uuid;not null"`
	Quantity         int64     `gorm:"not null"` // always positive
	Source           Location  `gorm:"embedded;embeddedPrefix:source_"`
	Destination      Location  `gorm:"embedded;embeddedPrefix:destination_"`
	Comment          string    `gorm:"type:varchar(255)"`

	// BatchItems carries the per-batch split of the quantity for
	// batch-tracked products. Loaded with the movement.
	BatchItems []MovementBatchItem `gorm:"foreignKey:MovementID;references:ID"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// MovementBatchItem attributes part of a movement's quantity to a batch
type MovementBatchItem struct {
	shared.BaseEntity
	MovementID uuid.UUID `gorm:"type:uuid;not null;index"`
	BatchID    uuid.UUID `gorm:"type:uuid;not null"`
	Quantity   int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MovementBatchItem) TableName() string {
	return "stock_movement_batch_items"
}

// NewStockMovement creates a validated ledger entry
func NewStockMovement(productID, productVersionID uuid.UUID, quantity int64, source, destination Location) (*StockMovement, error) {
	if productID == uuid.Nil {
		return nil, ErrInvalidProduct
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}

	return &StockMovement{
		BaseEntity:       shared.NewBaseEntity(),
		ProductID:        productID,
		ProductVersionID: productVersionID,
		Quantity:         quantity,
		Source:           source,
		Destination:      destination,
	}, nil
}

// WithBatchItems attaches a batch split to the movement. The split must
// account for the full movement quantity.
func (m *StockMovement) WithBatchItems(quantities map[uuid.UUID]int64) (*StockMovement, error) {
	var total int64
	items := make([]MovementBatchItem, 0, len(quantities))
	for batchID, qty := range quantities {
		if qty < 0 {
			return nil, NewBatchConsistencyError(m.ProductID.String(), m.ID.String()).
				WithDetail("batch_id", batchID.String())
		}
		total += qty
		items = append(items, MovementBatchItem{
			BaseEntity: shared.NewBaseEntity(),
			MovementID: m.ID,
			BatchID:    batchID,
			Quantity:   qty,
		})
	}
	if total != m.Quantity {
		return nil, NewBatchConsistencyError(m.ProductID.String(), m.ID.String())
	}
	m.BatchItems = items
	return m, nil
}

// IsNoOp returns true when source and destination are the same location.
// Such movements must not perturb any stored quantity.
func (m *StockMovement) IsNoOp() bool {
	return m.Source == m.Destination
}

// HasBatchDetail returns true when the movement carries a per-batch split
func (m *StockMovement) HasBatchDetail() bool {
	return len(m.BatchItems) > 0
}

// BatchQuantities returns the per-batch split as a map
func (m *StockMovement) BatchQuantities() map[uuid.UUID]int64 {
	if len(m.BatchItems) == 0 {
		return nil
	}
	quantities := make(map[uuid.UUID]int64, len(m.BatchItems))
	for _, item := range m.BatchItems {
		quantities[item.BatchID] += item.Quantity
	}
	return quantities
}

// StockChange is a signed delta against one (product, location) stock row
type StockChange struct {
	ProductID        uuid.UUID
	ProductVersionID uuid.UUID
	Location         Location
	Delta            int64
}

// StockChanges returns the two row deltas implied by the movement: quantity
// leaves the source and arrives at the destination. A no-op movement yields
// no changes.
func (m *StockMovement) StockChanges() []StockChange {
	if m.IsNoOp() || m.Quantity == 0 {
		return nil
	}
	return []StockChange{
		{ProductID: m.ProductID, ProductVersionID: m.ProductVersionID, Location: m.Source, Delta: -m.Quantity},
		{ProductID: m.ProductID, ProductVersionID: m.ProductVersionID, Location: m.Destination, Delta: m.Quantity},
	}
}

// PhysicalStockDelta returns the net change to the product's physical stock
// caused by this movement: non-zero only when the movement crosses the
// boundary between internal and external locations.
func (m *StockMovement) PhysicalStockDelta() int64 {
	if m.IsNoOp() {
		return 0
	}
	switch {
	case m.Destination.IsInternal() && !m.Source.IsInternal():
		return m.Quantity
	case m.Source.IsInternal() && !m.Destination.IsInternal():
		return -m.Quantity
	default:
		return 0
	}
}
