package repository

import (
	"context"
	"fmt"

	"storefront-support/backend/internal/models"

	"gorm.io/gorm"
)

// MessageRepository persists transcript entries. Append is the only mutation.
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	ListAll(ctx context.Context, conversationID string) ([]models.Message, error)
	ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
}

// GormMessageRepository implements MessageRepository on gorm
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a message repository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Append touches the owning conversation and inserts the message in one
// transaction. ErrConversationNotFound is returned when the owner is missing.
func (r *GormMessageRepository) Append(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touch(tx, message.ConversationID, message.CreatedAt); err != nil {
			return err
		}
		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
}

// ListAll returns the full transcript in ascending order
func (r *GormMessageRepository) ListAll(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// ListRecent returns the min(N, limit) most recent messages in ascending order
func (r *GormMessageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
