package service

import (
	"context"
	"fmt"
	"time"

	"storefront-support/backend/internal/models"
	"storefront-support/backend/internal/repository"

	"github.com/google/uuid"
)

// MessageService appends to and reads conversation transcripts
type MessageService struct {
	repo repository.MessageRepository
	now  func() time.Time
}

// NewMessageService creates a message service
func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Append stores a new message and advances the conversation's updatedAt.
// It fails with ErrConversationNotFound if the conversation does not exist.
func (s *MessageService) Append(ctx context.Context, conversationID string, sender models.Sender, content string) (*models.Message, error) {
	if !sender.Valid() {
		return nil, fmt.Errorf("invalid sender %q", sender)
	}

	message := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Append(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

func (s *MessageService) ListAll(ctx context.Context, conversationID string) ([]models.Message, error) {
	return s.repo.ListAll(ctx, conversationID)
}

func (s *MessageService) ListRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	return s.repo.ListRecent(ctx, conversationID, limit)
}
