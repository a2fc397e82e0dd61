// Package api exposes the chat service over HTTP and WebSocket.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"storefront-support/backend/internal/service"
	apperrors "storefront-support/backend/pkg/errors"
	"storefront-support/backend/pkg/health"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/pkg/middleware"
	"storefront-support/backend/pkg/validator"

	"github.com/gin-gonic/gin"
)

const notConfiguredMessage = "AI service is not configured. Please set the language model API key."

// ChatControllerOptions tunes request handling
type ChatControllerOptions struct {
	MaxMessageLength int
	MaxBodySize      int64
	// OriginAllowed gates WebSocket upgrades; nil allows every origin
	OriginAllowed func(origin string) bool
}

// ChatController handles the /chat endpoints
type ChatController struct {
	chat    *service.ChatService
	checker *health.Checker
	opts    ChatControllerOptions
}

// NewChatController creates a chat controller. checker may be nil.
func NewChatController(chat *service.ChatService, checker *health.Checker, opts ChatControllerOptions) *ChatController {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = validator.DefaultMaxMessageLength
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 100 * 1024
	}
	return &ChatController{chat: chat, checker: checker, opts: opts}
}

// RegisterRoutes registers the routes for the chat controller
func (c *ChatController) RegisterRoutes(router gin.IRouter) {
	chat := router.Group("/chat")
	{
		chat.GET("/health", c.Health)
		chat.POST("/start", c.StartConversation)
		chat.POST("/message", c.SendMessage)
		chat.GET("/history/:sessionId", c.GetHistory)
		chat.GET("/ws", c.ServeWS)
	}
}

// HealthResponse is the body of GET /chat/health
type HealthResponse struct {
	Status        string                      `json:"status"`
	Timestamp     time.Time                   `json:"timestamp"`
	LLMConfigured bool                        `json:"llmConfigured"`
	Provider      string                      `json:"provider,omitempty"`
	Warning       string                      `json:"warning,omitempty"`
	Components    map[string]health.Component `json:"components,omitempty"`
}

// Health reports liveness and whether the model is configured
func (c *ChatController) Health(ctx *gin.Context) {
	resp := HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC(),
		LLMConfigured: c.chat.LLMConfigured(),
		Provider:      c.chat.ProviderName(),
	}
	if !resp.LLMConfigured {
		resp.Warning = "Language model API key not configured"
	}

	status := http.StatusOK
	if c.checker != nil {
		resp.Components = c.checker.GetStatus()
		if !c.checker.IsSystemHealthy() {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	ctx.JSON(status, resp)
}

// StartConversation opens a conversation with the welcome message
func (c *ChatController) StartConversation(ctx *gin.Context) {
	resp, err := c.chat.StartNewConversation(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(apperrors.NewInternalServerError(apperrors.CodeStoreUnavailable, "Failed to start conversation").Wrap(err))
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// sendMessageRequest uses pointers so an absent message can be told apart
// from an empty one
type sendMessageRequest struct {
	Message   *string `json:"message"`
	SessionID *string `json:"sessionId"`
}

// SendMessage runs one chat turn
func (c *ChatController) SendMessage(ctx *gin.Context) {
	var req sendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(c.decodeError(err))
		return
	}

	if req.Message == nil {
		_ = ctx.Error(apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed",
			[]string{"message is required"}))
		return
	}
	var sessionID string
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}

	guarded, details := validator.ValidateChatRequest(*req.Message, sessionID, c.opts.MaxMessageLength)
	if len(details) > 0 {
		_ = ctx.Error(apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed", details))
		return
	}

	resp, err := c.chat.HandleMessage(ctx.Request.Context(), service.MessageInput{
		Message:   guarded.Message.Text,
		SessionID: guarded.SessionID,
		Truncated: guarded.Message.Truncated,
	})
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, resp)
	case errors.Is(err, service.ErrLLMNotConfigured):
		_ = ctx.Error(apperrors.NewServiceUnavailableError(apperrors.CodeLLMNotConfigured, notConfiguredMessage))
	case errors.Is(err, service.ErrStore) && resp != nil:
		logger.FromGin(ctx).LogError(err, "Chat turn failed")
		ctx.JSON(http.StatusInternalServerError, resp)
	default:
		_ = ctx.Error(err)
	}
}

func (c *ChatController) decodeError(err error) *apperrors.AppError {
	if middleware.IsBodyTooLarge(err) {
		return middleware.PayloadTooLarge(c.opts.MaxBodySize)
	}
	if errors.Is(err, io.EOF) {
		return apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed",
			[]string{"request body is required"})
	}
	return apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed",
		[]string{"request body must be a JSON object with a string message"})
}

// GetHistory returns the full transcript of a conversation
func (c *ChatController) GetHistory(ctx *gin.Context) {
	sessionID, err := validator.NormalizeSessionID(ctx.Param("sessionId"))
	if err != nil {
		_ = ctx.Error(apperrors.BadRequestWithDetails(apperrors.CodeInvalidSessionID, "Invalid session ID format",
			[]string{err.Error()}))
		return
	}

	history, err := c.chat.GetHistory(ctx.Request.Context(), sessionID)
	if errors.Is(err, service.ErrConversationNotFound) {
		_ = ctx.Error(apperrors.NewNotFoundError(apperrors.CodeConversationNotFound, "Conversation not found"))
		return
	}
	if err != nil {
		_ = ctx.Error(apperrors.NewInternalServerError(apperrors.CodeStoreUnavailable, "Failed to fetch conversation history").Wrap(err))
		return
	}
	ctx.JSON(http.StatusOK, history)
}
