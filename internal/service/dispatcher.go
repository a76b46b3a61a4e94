package service

import (
	"context"
	"time"

	"kelabpetani/internal/events"
	"kelabpetani/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier is the best-effort mail channel. Send reports delivery and never
// returns an error.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// Dispatcher runs the side effects of a committed transition: emailing the
// affected users and announcing the event. Nothing it does can fail the
// caller.
type Dispatcher struct {
	users     repository.UserRepository
	notifier  Notifier
	publisher events.Publisher
	log       *zap.Logger
}

func NewDispatcher(users repository.UserRepository, notifier Notifier, publisher events.Publisher, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Dispatcher{users: users, notifier: notifier, publisher: publisher, log: log}
}

// Notify mails every distinct user in ids. Users without an address are
// skipped by the gateway.
func (d *Dispatcher) Notify(ctx context.Context, ids []uuid.UUID, subject, body string) {
	if d == nil || d.notifier == nil || len(ids) == 0 {
		return
	}
	defer d.recoverPanic("notify")

	users, err := d.users.GetByIDs(context.WithoutCancel(ctx), uniqueIDs(ids))
	if err != nil {
		d.log.Warn("failed to load notification recipients", zap.Error(err))
		return
	}
	for _, u := range users {
		d.notifier.Send(ctx, u.Email, subject, body)
	}
}

// Publish hands evt to the event sinks.
func (d *Dispatcher) Publish(ctx context.Context, evt events.Event) {
	if d == nil {
		return
	}
	defer d.recoverPanic("publish")

	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	evt.Recipients = uniqueIDs(evt.Recipients)
	if err := d.publisher.Publish(ctx, evt); err != nil {
		d.log.Warn("failed to publish event", zap.String("type", evt.Type), zap.String("entity_id", evt.EntityID.String()), zap.Error(err))
	}
}

func (d *Dispatcher) recoverPanic(stage string) {
	if r := recover(); r != nil {
		d.log.Error("post-commit side effect panicked", zap.String("stage", stage), zap.Any("panic", r))
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
