package stock

import (
	"context"

	"github.com/erp/stockengine/internal/domain/shared"
	"go.uber.org/zap"
)

// Notifications collects outbound events during a unit of work so they can be
// published after the owning transaction committed. Publishing from inside the
// transaction would leak retries as duplicate events and announce state that
// may still roll back.
//
// A Notifications value belongs to one operation; it is not safe for
// concurrent use.
type Notifications struct {
	events []shared.DomainEvent
}

// Add records an event for post-commit publishing
func (n *Notifications) Add(event shared.DomainEvent) {
	n.events = append(n.events, event)
}

// Reset drops collected events, used when a retried transaction starts over
func (n *Notifications) Reset() {
	n.events = nil
}

// Events returns the collected events in insertion order
func (n *Notifications) Events() []shared.DomainEvent {
	return n.events
}

// Publish hands all collected events to the publisher. Publish failures are
// logged and do not fail the operation; the state change already committed.
func (n *Notifications) Publish(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger) {
	for _, event := range n.events {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.Error("failed to publish accounting event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err))
		}
	}
	n.events = nil
}
