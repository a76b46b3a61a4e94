package repository

import (
	"context"

	"kelabpetani/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	List(ctx context.Context, contextType string, contextID uuid.UUID) ([]model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(msg).Error
}

// List returns the thread oldest first with senders loaded.
func (r *messageRepository) List(ctx context.Context, contextType string, contextID uuid.UUID) ([]model.Message, error) {
	var msgs []model.Message
	err := GetDB(ctx, r.db).
		Preload("Sender").
		Where("context_type = ? AND context_id = ?", contextType, contextID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
