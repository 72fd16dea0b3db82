package stock

import (
	"github.com/google/uuid"
)

// MovementGroup is a collapsed batch of movements sharing product, source and
// destination. Collapsing bounds the number of row updates per ingestion
// batch without losing per-batch detail for batch-tracked products.
type MovementGroup struct {
	ProductID        uuid.UUID
	ProductVersionID uuid.UUID
	Source           Location
	Destination      Location
	Quantity         int64
	// BatchQuantities is nil for products without batch tracking and for
	// movements that carried no batch detail.
	BatchQuantities map[uuid.UUID]int64
	// MovementIDs lists the ledger entries folded into this group.
	MovementIDs []uuid.UUID
}

type movementGroupKey struct {
	productID   uuid.UUID
	source      Location
	destination Location
	withBatches bool
}

// CollapseMovements merges movements by (product, source, destination),
// preserving first-seen ordering. For batch-tracked products only movements
// carrying batch detail are merged (their batch maps are combined); movements
// lacking batch detail keep their original insertion order as standalone
// groups, so the inference of which batch lost or gained stock stays
// conservative and auditable. No-op movements are dropped.
//
// A movement whose batch split does not cover its quantity fails the whole
// batch with a BATCH_CONSISTENCY_VIOLATION; retrying cannot succeed, the
// caller must fix the input.
func CollapseMovements(movements []*StockMovement, batchTracked map[uuid.UUID]bool) ([]*MovementGroup, error) {
	groups := make([]*MovementGroup, 0, len(movements))
	index := make(map[movementGroupKey]*MovementGroup)

	for _, movement := range movements {
		if movement.IsNoOp() || movement.Quantity == 0 {
			continue
		}

		tracked := batchTracked[movement.ProductID]
		if tracked && movement.HasBatchDetail() {
			var total int64
			for _, item := range movement.BatchItems {
				total += item.Quantity
			}
			if total != movement.Quantity {
				return nil, NewBatchConsistencyError(movement.ProductID.String(), movement.ID.String())
			}
		}

		if tracked && !movement.HasBatchDetail() {
			// Never merged, order preserved.
			groups = append(groups, &MovementGroup{
				ProductID:        movement.ProductID,
				ProductVersionID: movement.ProductVersionID,
				Source:           movement.Source,
				Destination:      movement.Destination,
				Quantity:         movement.Quantity,
				MovementIDs:      []uuid.UUID{movement.ID},
			})
			continue
		}

		key := movementGroupKey{
			productID:   movement.ProductID,
			source:      movement.Source,
			destination: movement.Destination,
			withBatches: tracked,
		}
		group, ok := index[key]
		if !ok {
			group = &MovementGroup{
				ProductID:        movement.ProductID,
				ProductVersionID: movement.ProductVersionID,
				Source:           movement.Source,
				Destination:      movement.Destination,
			}
			if tracked {
				group.BatchQuantities = make(map[uuid.UUID]int64)
			}
			index[key] = group
			groups = append(groups, group)
		}

		group.Quantity += movement.Quantity
		group.MovementIDs = append(group.MovementIDs, movement.ID)
		if tracked {
			for batchID, qty := range movement.BatchQuantities() {
				group.BatchQuantities[batchID] += qty
			}
		}
	}

	return groups, nil
}

// StockChanges flattens collapsed groups into per-(product, location) row
// deltas, merging the source and destination sides.
func StockChangesForGroups(groups []*MovementGroup) []StockChange {
	type changeKey struct {
		productID uuid.UUID
		location  Location
	}
	merged := make(map[changeKey]*StockChange)
	order := make([]changeKey, 0, len(groups)*2)

	apply := func(productID, productVersionID uuid.UUID, location Location, delta int64) {
		key := changeKey{productID: productID, location: location}
		change, ok := merged[key]
		if !ok {
			change = &StockChange{ProductID: productID, ProductVersionID: productVersionID, Location: location}
			merged[key] = change
			order = append(order, key)
		}
		change.Delta += delta
	}

	for _, group := range groups {
		apply(group.ProductID, group.ProductVersionID, group.Source, -group.Quantity)
		apply(group.ProductID, group.ProductVersionID, group.Destination, group.Quantity)
	}

	changes := make([]StockChange, 0, len(order))
	for _, key := range order {
		if merged[key].Delta != 0 {
			changes = append(changes, *merged[key])
		}
	}
	return changes
}
