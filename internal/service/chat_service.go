package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-support/backend/ai"
	"storefront-support/backend/internal/knowledge"
	"storefront-support/backend/internal/models"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/pkg/resilience"
	"storefront-support/backend/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrLLMNotConfigured is returned before any state change when no model
	// provider was configured at startup
	ErrLLMNotConfigured = errors.New("AI service is not configured")
	// ErrStore marks failures of the conversation store during a chat turn
	ErrStore = errors.New("conversation store failure")
)

// ChatServiceConfig tunes how replies are produced
type ChatServiceConfig struct {
	ContextLimit int
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	SystemPrompt string
}

// DefaultChatServiceConfig returns the production defaults
func DefaultChatServiceConfig() ChatServiceConfig {
	return ChatServiceConfig{
		ContextLimit: 10,
		MaxTokens:    500,
		Temperature:  0.7,
		Timeout:      30 * time.Second,
		SystemPrompt: knowledge.SystemPrompt(),
	}
}

// ChatDeps are the collaborators of ChatService. Provider may be nil, which
// puts the service in the not-configured state. Locker, Breaker, Metrics and
// Logger have usable defaults.
type ChatDeps struct {
	Conversations *ConversationService
	Messages      *MessageService
	Provider      ai.Provider
	Locker        Locker
	Breaker       *resilience.CircuitBreaker
	Metrics       *observability.Metrics
	Logger        *logger.Logger
}

// MessageInput is a guarded user message
type MessageInput struct {
	Message   string
	SessionID string
	Truncated bool
}

// ChatResponse is returned for every chat turn
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
	Error     string `json:"error,omitempty"`
}

// HistoryResponse is a full transcript
type HistoryResponse struct {
	Messages  []models.Message `json:"messages"`
	SessionID string           `json:"sessionId"`
}

// ChatService orchestrates a chat turn: resolve the conversation, build the
// bounded context, call the model and persist both sides.
type ChatService struct {
	conversations *ConversationService
	messages      *MessageService
	provider      ai.Provider
	locker        Locker
	breaker       *resilience.CircuitBreaker
	metrics       *observability.Metrics
	log           *logger.Logger
	config        ChatServiceConfig
}

// NewChatService creates a chat service
func NewChatService(deps ChatDeps, config ChatServiceConfig) *ChatService {
	log := deps.Logger
	if log == nil {
		log = logger.GetGlobal()
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Breaker == nil {
		cbConfig := resilience.DefaultCircuitBreakerConfig("llm")
		cbConfig.IsFailure = BreakerCounts
		deps.Breaker = resilience.NewCircuitBreaker(cbConfig, log)
	}
	if config.ContextLimit <= 0 {
		config.ContextLimit = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = knowledge.SystemPrompt()
	}

	return &ChatService{
		conversations: deps.Conversations,
		messages:      deps.Messages,
		provider:      deps.Provider,
		locker:        deps.Locker,
		breaker:       deps.Breaker,
		metrics:       deps.Metrics,
		log:           log.WithComponent("chat"),
		config:        config,
	}
}

// BreakerCounts reports whether a model error should count against the
// circuit breaker. Only upstream outages and timeouts do.
func BreakerCounts(err error) bool {
	switch ai.Classify(err) {
	case ai.FailureUnavailable, ai.FailureTimeout:
		return true
	}
	return false
}

// LLMConfigured reports whether a model provider is available
func (s *ChatService) LLMConfigured() bool {
	return s.provider != nil
}

// ProviderName names the configured provider, or "" when none is
func (s *ChatService) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// Breaker exposes the model circuit breaker for health reporting
func (s *ChatService) Breaker() *resilience.CircuitBreaker {
	return s.breaker
}

// HandleMessage runs one chat turn. Model failures are not errors: they yield
// a fallback reply with Error set to the failure kind. Store failures return
// both a response carrying InternalErrorReply and an error wrapping ErrStore.
func (s *ChatService) HandleMessage(ctx context.Context, in MessageInput) (*ChatResponse, error) {
	if s.provider == nil {
		return nil, ErrLLMNotConfigured
	}

	ctx, span := observability.Tracer().Start(ctx, "chat.HandleMessage")
	defer span.End()

	conversation, created, err := s.conversations.Resolve(ctx, in.SessionID)
	if err != nil {
		return s.storeFailure(ctx, span, in.SessionID, fmt.Errorf("resolve conversation: %w", err))
	}
	sessionID := conversation.ID
	log := logger.FromContextOr(ctx, s.log).WithSessionID(sessionID)
	span.SetAttributes(
		attribute.String("chat.session_id", sessionID),
		attribute.Bool("chat.session_created", created),
		attribute.Bool("chat.truncated", in.Truncated),
	)

	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return s.storeFailure(ctx, span, sessionID, fmt.Errorf("lock conversation: %w", err))
	}
	defer unlock()

	if in.Truncated {
		return s.replyTooLong(ctx, span, sessionID, in.Message)
	}

	history, err := s.messages.ListRecent(ctx, sessionID, s.config.ContextLimit)
	if err != nil {
		return s.storeFailure(ctx, span, sessionID, fmt.Errorf("load history: %w", err))
	}

	if _, err := s.messages.Append(ctx, sessionID, models.SenderUser, in.Message); err != nil {
		return s.storeFailure(ctx, span, sessionID, fmt.Errorf("store user message: %w", err))
	}

	turns := BuildContext(s.config.SystemPrompt, history, in.Message)
	reply, err := s.complete(ctx, turns)
	if err != nil {
		kind := ai.Classify(err)
		log.Warn("Model call failed", "kind", string(kind), "provider", s.provider.Name(), "error", err.Error())
		span.SetAttributes(attribute.String("chat.failure_kind", string(kind)))
		span.SetStatus(codes.Error, string(kind))
		s.metrics.RecordReply(ctx, string(kind))
		return &ChatResponse{Reply: FallbackReply(kind), SessionID: sessionID, Error: string(kind)}, nil
	}

	if _, err := s.messages.Append(ctx, sessionID, models.SenderAI, reply); err != nil {
		return s.storeFailure(ctx, span, sessionID, fmt.Errorf("store reply: %w", err))
	}

	s.metrics.RecordReply(ctx, "ok")
	log.Debug("Reply sent", "history", len(history), "reply_length", len(reply))
	return &ChatResponse{Reply: reply, SessionID: sessionID}, nil
}

func (s *ChatService) replyTooLong(ctx context.Context, span trace.Span, sessionID, message string) (*ChatResponse, error) {
	if _, err := s.messages.Append(ctx, sessionID, models.SenderUser, message); err != nil {
		return s.storeFailure(ctx, span, sessionID, fmt.Errorf("store user message: %w", err))
	}

	notice := knowledge.TooLongNotice()
	if _, err := s.messages.Append(ctx, sessionID, models.SenderAI, notice); err != nil {
		return s.storeFailure(ctx, span, sessionID, fmt.Errorf("store notice: %w", err))
	}

	s.metrics.RecordReply(ctx, "truncated")
	return &ChatResponse{Reply: notice, SessionID: sessionID}, nil
}

// complete calls the provider under the configured deadline and the breaker
func (s *ChatService) complete(ctx context.Context, turns []ai.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	ctx, span := observability.Tracer().Start(ctx, "llm.Complete",
		trace.WithAttributes(attribute.String("llm.provider", s.provider.Name()), attribute.Int("llm.turns", len(turns))))
	defer span.End()

	start := time.Now()
	var reply string
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		reply, err = s.provider.Complete(ctx, ai.Request{
			Turns:       turns,
			MaxTokens:   s.config.MaxTokens,
			Temperature: s.config.Temperature,
		})
		if err == nil && strings.TrimSpace(reply) == "" {
			err = ai.ErrEmptyReply
		}
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}

	outcome := "ok"
	if err != nil {
		outcome = string(ai.Classify(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.metrics.RecordLLMCall(ctx, s.provider.Name(), outcome, time.Since(start))

	return strings.TrimSpace(reply), err
}

func (s *ChatService) storeFailure(ctx context.Context, span trace.Span, sessionID string, err error) (*ChatResponse, error) {
	logger.FromContextOr(ctx, s.log).LogError(err, "Chat turn failed", "session_id", sessionID)
	span.RecordError(err)
	span.SetStatus(codes.Error, "store failure")
	s.metrics.RecordReply(ctx, "error")

	return &ChatResponse{Reply: InternalErrorReply, SessionID: sessionID, Error: ErrorInternal},
		fmt.Errorf("%w: %w", ErrStore, err)
}

// StartNewConversation opens a conversation seeded with the welcome message.
// The model is not called.
func (s *ChatService) StartNewConversation(ctx context.Context) (*ChatResponse, error) {
	conversation, err := s.conversations.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	welcome := knowledge.WelcomeMessage()
	if _, err := s.messages.Append(ctx, conversation.ID, models.SenderAI, welcome); err != nil {
		return nil, fmt.Errorf("store welcome message: %w", err)
	}

	return &ChatResponse{Reply: welcome, SessionID: conversation.ID}, nil
}

// GetHistory returns the full transcript, or ErrConversationNotFound
func (s *ChatService) GetHistory(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	sessionID = strings.ToLower(sessionID)
	if _, err := s.conversations.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListAll(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &HistoryResponse{Messages: messages, SessionID: sessionID}, nil
}
