package service

import (
	"context"
	"sync"
	"testing"

	"storefront-support/backend/ai"
	"storefront-support/backend/internal/models"
	"storefront-support/backend/internal/repository"
	"storefront-support/backend/internal/storetest"
	"storefront-support/backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider records every request and answers with a fixed reply or error
type fakeProvider struct {
	mu       sync.Mutex
	reply    string
	err      error
	complete func(ctx context.Context, req ai.Request) (string, error)
	requests []ai.Request
}

func (p *fakeProvider) Complete(ctx context.Context, req ai.Request) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	fn := p.complete
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return p.reply, p.err
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) calls() []ai.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.Request(nil), p.requests...)
}

type fixture struct {
	db            *gorm.DB
	convRepo      *repository.GormConversationRepository
	conversations *ConversationService
	messages      *MessageService
	chat          *ChatService
}

func newFixture(t *testing.T, provider ai.Provider, mutate ...func(*ChatDeps, *ChatServiceConfig)) *fixture {
	t.Helper()

	db := storetest.Open(t)
	log := logger.Discard()
	convRepo := repository.NewGormConversationRepository(db)
	conversations := NewConversationService(convRepo, nil, log)
	messages := NewMessageService(repository.NewGormMessageRepository(db))

	deps := ChatDeps{
		Conversations: conversations,
		Messages:      messages,
		Provider:      provider,
		Logger:        log,
	}
	cfg := DefaultChatServiceConfig()
	for _, m := range mutate {
		m(&deps, &cfg)
	}

	return &fixture{
		db:            db,
		convRepo:      convRepo,
		conversations: conversations,
		messages:      messages,
		chat:          NewChatService(deps, cfg),
	}
}

func (f *fixture) history(t *testing.T, sessionID string) []models.Message {
	t.Helper()
	msgs, err := f.messages.ListAll(context.Background(), sessionID)
	require.NoError(t, err)
	return msgs
}

func senders(msgs []models.Message) []models.Sender {
	out := make([]models.Sender, len(msgs))
	for i, m := range msgs {
		out[i] = m.Sender
	}
	return out
}
