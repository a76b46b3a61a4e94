package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
	TypePawahCreated       = "pawah.created"
	TypePawahAccepted      = "pawah.accepted"
	TypePawahStatusChanged = "pawah.status_changed"
	TypeReviewDecided      = "moderation.decided"
	TypeMessagePosted      = "message.posted"
)

// Event is a committed domain change announced to live sinks.
type Event struct {
	Type       string     `json:"type"`
	EntityType string     `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	Action     string     `json:"action"`
	OldStatus  string     `json:"old_status,omitempty"`
	NewStatus  string     `json:"new_status,omitempty"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`

	// Recipients are the users the websocket hub delivers to. Not serialized.
	Recipients []uuid.UUID `json:"-"`
}

// Publisher hands an event to a sink. Implementations must not block the
// caller for long; delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
