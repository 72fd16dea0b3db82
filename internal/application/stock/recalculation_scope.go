package stock

import (
	"context"

	"github.com/google/uuid"
)

// RecalculationScope coalesces reserved-stock recalculation requests inside a
// nested unit of work. Business operations touch the same products many times
// (order written, movements applied, compensation), and each touch requests a
// recompute; running every request would redo the same expensive order join
// repeatedly. Enter/Exit model the nesting as a counter, requested product ids
// accumulate, and the single coalesced run happens when the outermost level
// exits.
//
// A scope belongs to one operation. It is not safe for concurrent use and
// must not be shared across goroutines.
type RecalculationScope struct {
	depth   int
	pending map[uuid.UUID]struct{}
	order   []uuid.UUID
	run     func(ctx context.Context, productIDs []uuid.UUID) error
}

// NewRecalculationScope creates a scope that executes run with the coalesced
// product set.
func NewRecalculationScope(run func(ctx context.Context, productIDs []uuid.UUID) error) *RecalculationScope {
	return &RecalculationScope{
		pending: make(map[uuid.UUID]struct{}),
		run:     run,
	}
}

// Enter increments the nesting level
func (s *RecalculationScope) Enter() {
	s.depth++
}

// Exit decrements the nesting level. Leaving the outermost level triggers the
// coalesced run for everything requested since.
func (s *RecalculationScope) Exit(ctx context.Context) error {
	if s.depth > 0 {
		s.depth--
	}
	if s.depth > 0 {
		return nil
	}
	return s.flush(ctx)
}

// Request asks for a recompute of the given products. Outside any nesting the
// recompute runs immediately; inside, the ids are queued for the coalesced
// run.
func (s *RecalculationScope) Request(ctx context.Context, productIDs []uuid.UUID) error {
	for _, id := range productIDs {
		if _, ok := s.pending[id]; ok {
			continue
		}
		s.pending[id] = struct{}{}
		s.order = append(s.order, id)
	}
	if s.depth > 0 {
		return nil
	}
	return s.flush(ctx)
}

// Scoped runs fn one nesting level deeper, so all Request calls inside fn
// coalesce into one recompute when the outermost Scoped returns.
func (s *RecalculationScope) Scoped(ctx context.Context, fn func() error) error {
	s.Enter()
	if err := fn(); err != nil {
		s.depth--
		return err
	}
	return s.Exit(ctx)
}

func (s *RecalculationScope) flush(ctx context.Context) error {
	if len(s.order) == 0 {
		return nil
	}
	productIDs := s.order
	s.order = nil
	s.pending = make(map[uuid.UUID]struct{})
	return s.run(ctx, productIDs)
}
