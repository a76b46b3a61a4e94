package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message context types
const (
	ContextOrder = "order"
	ContextPawah = "pawah"
)

// Message is a note exchanged between the two parties of an order or project.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContextType string    `gorm:"type:varchar(20);not null;index:idx_message_context" json:"context_type"`
	ContextID   uuid.UUID `gorm:"type:uuid;not null;index:idx_message_context" json:"context_id"`
	SenderID    uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Sender      *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
