package stock

import "github.com/erp/stockengine/internal/domain/shared"

// Domain errors raised by the stock accounting core. Validation errors are
// never retried; the caller gets structured details to react on.
var (
	ErrInvalidQuantity = shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
	ErrInvalidProduct  = shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
)

// NewInvalidLocationError reports a structurally invalid stock location
func NewInvalidLocationError(kind LocationKind) *shared.DomainError {
	return shared.NewDomainError("INVALID_STOCK_LOCATION", "Stock location is structurally invalid").
		WithDetail("kind", string(kind))
}

// NewBatchConsistencyError reports a batch-tracking violation for a movement,
// e.g. batch quantities that do not add up to the movement quantity.
func NewBatchConsistencyError(productID, movementID string) *shared.DomainError {
	return shared.NewDomainError("BATCH_CONSISTENCY_VIOLATION",
		"Batch quantities of the movement do not match the movement quantity").
		WithDetail("product_id", productID).
		WithDetail("movement_id", movementID)
}
