package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-support/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrConversationNotFound is returned when a conversation id has no row
var ErrConversationNotFound = errors.New("conversation not found")

// purgeBatchSize bounds how many conversations one purge statement removes
const purgeBatchSize = 500

// ConversationRepository persists conversations
type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
	DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormConversationRepository implements ConversationRepository on gorm
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a conversation repository
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *GormConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check conversation: %w", err)
	}
	return count > 0, nil
}

func (r *GormConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &conversation, nil
}

func (r *GormConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return touch(r.db.WithContext(ctx), id, at)
}

// touch advances updated_at; it runs on whatever handle it is given so the
// message repository can call it inside its append transaction.
func touch(db *gorm.DB, id string, at time.Time) error {
	res := db.Model(&models.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at)
	if res.Error != nil {
		return fmt.Errorf("touch conversation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// DeleteInactiveSince removes conversations not updated since cutoff together
// with all of their messages, and returns how many conversations were removed.
func (r *GormConversationRepository) DeleteInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for {
		var removed int64
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			q := tx.Model(&models.Conversation{}).
				Where("updated_at < ?", cutoff).
				Order("updated_at ASC").
				Limit(purgeBatchSize)
			if tx.Dialector.Name() == "postgres" {
				q = q.Clauses(clause.Locking{Strength: "UPDATE"})
			}

			var ids []string
			if err := q.Pluck("id", &ids).Error; err != nil {
				return err
			}
			if len(ids) == 0 {
				return nil
			}

			if err := tx.Where("conversation_id IN ?", ids).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			res := tx.Where("id IN ?", ids).Delete(&models.Conversation{})
			if res.Error != nil {
				return res.Error
			}
			removed = res.RowsAffected
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("purge conversations: %w", err)
		}
		total += removed
		if removed < purgeBatchSize {
			return total, nil
		}
	}
}
