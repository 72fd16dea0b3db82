package order

import (
	"context"

	"github.com/google/uuid"
)

// Predicate is a typed WHERE condition appended to the open-order query.
// Args are bound positionally; the SQL must only reference tables the query
// already selects from or that a Join of the same customizer introduces.
type Predicate struct {
	SQL  string
	Args []any
}

// Join is an additional typed join descriptor for the open-order query
type Join struct {
	Table     string
	Condition string
	Args      []any
}

// QueryCustomizer lets collaborators narrow the open-order query without
// composing raw SQL strings into it, e.g. to exclude orders managed by an
// external fulfillment system.
type QueryCustomizer interface {
	Predicates() []Predicate
	Joins() []Join
}

// Reader is the read-only query surface over the order workflow's data. The
// accounting engine never writes orders; it only derives reservations from
// them.
type Reader interface {
	// FindOrdersBindingStock loads non-terminal orders holding at least one
	// line item for the given products, with deliveries and line items
	// attached and return quantities aggregated onto the line items.
	// Customizers are applied in order, ANDed together.
	FindOrdersBindingStock(ctx context.Context, productIDs []uuid.UUID, customizers ...QueryCustomizer) ([]*Order, error)

	// FindOrdersByIDs loads the given orders with the same shape
	FindOrdersByIDs(ctx context.Context, orderIDs []uuid.UUID) ([]*Order, error)
}

// StaticCustomizer is the trivial QueryCustomizer: a fixed predicate/join
// set known at registration time.
type StaticCustomizer struct {
	Where  []Predicate
	Joined []Join
}

func (c StaticCustomizer) Predicates() []Predicate { return c.Where }
func (c StaticCustomizer) Joins() []Join           { return c.Joined }
