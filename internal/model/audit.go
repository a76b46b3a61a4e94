package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audited entity types
const (
	EntityOrder   = "order"
	EntityPawah   = "pawah"
	EntityProduct = "product"
)

const (
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionArchive      = "archive"
	ActionUnarchive    = "unarchive"
	ActionStatusChange = "status_change"
	ActionAccept       = "accept"

	// Moderation actions
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// AuditLog is an append-only record of one state change. Rows are written in
// the same transaction as the change they describe and never updated.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType string     `gorm:"type:varchar(30);not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_entity" json:"entity_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	OldStatus  *string    `gorm:"type:varchar(50)" json:"old_status"`
	NewStatus  *string    `gorm:"type:varchar(50)" json:"new_status"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nil for system actions
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Meta       *string    `gorm:"type:text" json:"meta"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
