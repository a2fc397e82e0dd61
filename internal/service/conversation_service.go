package service

import (
	"context"
	"errors"
	"time"

	"storefront-support/backend/internal/models"
	"storefront-support/backend/internal/repository"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/pkg/validator"
	"storefront-support/backend/shared/observability"

	"github.com/google/uuid"
)

// ErrConversationNotFound is returned for identifiers with no conversation
var ErrConversationNotFound = repository.ErrConversationNotFound

// ConversationService manages conversation identity and lifetime
type ConversationService struct {
	repo    repository.ConversationRepository
	metrics *observability.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewConversationService creates a conversation service. metrics may be nil.
func NewConversationService(repo repository.ConversationRepository, metrics *observability.Metrics, log *logger.Logger) *ConversationService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &ConversationService{
		repo:    repo,
		metrics: metrics,
		log:     log.WithComponent("conversations"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new conversation with a fresh identifier
func (s *ConversationService) Create(ctx context.Context) (*models.Conversation, error) {
	now := s.now()
	conversation := &models.Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	s.metrics.RecordConversationCreated(ctx)
	s.log.Debug("Conversation created", "session_id", conversation.ID)
	return conversation, nil
}

// Exists reports whether a conversation with id is stored
func (s *ConversationService) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Get loads a conversation, or returns ErrConversationNotFound
func (s *ConversationService) Get(ctx context.Context, id string) (*models.Conversation, error) {
	return s.repo.Get(ctx, id)
}

// Touch marks the conversation as active now. Appending a message touches
// the conversation on its own; this is for activity that writes nothing.
func (s *ConversationService) Touch(ctx context.Context, id string) error {
	return s.repo.Touch(ctx, id, s.now())
}

// Resolve returns the conversation for sessionID, opening a new one when the
// id is empty, malformed or unknown. created reports whether that happened.
func (s *ConversationService) Resolve(ctx context.Context, sessionID string) (conversation *models.Conversation, created bool, err error) {
	if id, idErr := validator.NormalizeSessionID(sessionID); idErr == nil {
		conversation, err = s.repo.Get(ctx, id)
		if err == nil {
			return conversation, false, nil
		}
		if !errors.Is(err, ErrConversationNotFound) {
			return nil, false, err
		}
		s.log.Info("Unknown session, starting a new conversation", "requested_session_id", sessionID)
	}

	conversation, err = s.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	return conversation, true, nil
}
