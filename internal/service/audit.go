package service

import (
	"context"

	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"

	"github.com/google/uuid"
)

// AuditEntry describes one state change. Empty strings are stored as NULL.
type AuditEntry struct {
	EntityType string
	EntityID   uuid.UUID
	Action     string
	OldStatus  string
	NewStatus  string
	Actor      Actor
	Meta       string
}

// AuditWriter appends audit rows. It must be called with the transaction
// context of the change it records.
type AuditWriter struct {
	repo repository.AuditRepository
}

func NewAuditWriter(repo repository.AuditRepository) *AuditWriter {
	return &AuditWriter{repo: repo}
}

func (w *AuditWriter) Append(ctx context.Context, e AuditEntry) error {
	return w.repo.Log(ctx, &model.AuditLog{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		OldStatus:  optional(e.OldStatus),
		NewStatus:  optional(e.NewStatus),
		ActorID:    e.Actor.ptr(),
		Meta:       optional(e.Meta),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
