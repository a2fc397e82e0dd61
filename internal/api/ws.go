package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"storefront-support/backend/internal/service"
	apperrors "storefront-support/backend/pkg/errors"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/pkg/validator"
	pkgws "storefront-support/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Frames a single connection may send per second, and its burst
	frameRate  = 5
	frameBurst = 10
)

// wsClient is one WebSocket connection. Frames are handled in arrival order
// so replies on a connection never overtake each other.
type wsClient struct {
	conn       *websocket.Conn
	send       chan pkgws.OutboundFrame
	controller *ChatController
	limiter    *rate.Limiter
	log        *logger.Logger
	sessionID  string
}

// ServeWS upgrades the request and runs the chat protocol until the peer leaves
func (c *ChatController) ServeWS(ctx *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || c.opts.OriginAllowed == nil || c.opts.OriginAllowed(origin)
		},
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	sessionID := ctx.Query("sessionId")
	if sessionID != "" {
		id, err := validator.NormalizeSessionID(sessionID)
		if err != nil {
			_ = ctx.Error(apperrors.BadRequestWithDetails(apperrors.CodeInvalidSessionID, "Invalid session ID format",
				[]string{err.Error()}))
			return
		}
		sessionID = id
	}

	log := logger.FromGin(ctx)
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// the upgrader has already written the handshake error
		log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn:       conn,
		send:       make(chan pkgws.OutboundFrame, 16),
		controller: c,
		limiter:    rate.NewLimiter(frameRate, frameBurst),
		log:        log,
		sessionID:  sessionID,
	}
	log.Info("WebSocket connection established", "session_id", sessionID)

	// The connection outlives the request context once hijacked
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.Request.Context()))
	defer cancel()

	go client.writePump()
	client.readPump(connCtx)
	log.Info("WebSocket connection closed", "session_id", client.sessionID)
}

func (cl *wsClient) readPump(ctx context.Context) {
	defer func() {
		close(cl.send)
		_ = cl.conn.Close()
	}()

	cl.conn.SetReadLimit(cl.controller.opts.MaxBodySize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.log.Warn("WebSocket read failed", "error", err)
			}
			return
		}
		_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame pkgws.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			cl.send <- errorFrame(apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed",
				[]string{"frame must be a JSON object with a type"}))
			continue
		}
		if !cl.limiter.Allow() {
			cl.send <- errorFrame(apperrors.NewTooManyRequestsError(apperrors.CodeRateLimitExceeded,
				"Too many messages, please slow down"))
			continue
		}
		cl.send <- cl.handle(ctx, frame)
	}
}

func (cl *wsClient) handle(ctx context.Context, frame pkgws.InboundFrame) pkgws.OutboundFrame {
	switch frame.Type {
	case pkgws.TypePing:
		return pkgws.OutboundFrame{Type: pkgws.TypePong}
	case pkgws.TypeStart:
		resp, err := cl.controller.chat.StartNewConversation(ctx)
		if err != nil {
			cl.log.LogError(err, "Failed to start conversation")
			return errorFrame(apperrors.NewInternalServerError(apperrors.CodeStoreUnavailable, "Failed to start conversation"))
		}
		cl.sessionID = resp.SessionID
		return replyFrame(resp)
	case pkgws.TypeMessage:
		return cl.handleMessage(ctx, frame)
	default:
		return errorFrame(apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed",
			[]string{"unknown frame type: " + frame.Type}))
	}
}

func (cl *wsClient) handleMessage(ctx context.Context, frame pkgws.InboundFrame) pkgws.OutboundFrame {
	if frame.Message == nil {
		return errorFrame(apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed",
			[]string{"message is required"}))
	}
	sessionID := frame.SessionID
	if sessionID == "" {
		sessionID = cl.sessionID
	}

	guarded, details := validator.ValidateChatRequest(*frame.Message, sessionID, cl.controller.opts.MaxMessageLength)
	if len(details) > 0 {
		return errorFrame(apperrors.BadRequestWithDetails(apperrors.CodeValidationFailed, "Validation failed", details))
	}

	resp, err := cl.controller.chat.HandleMessage(ctx, service.MessageInput{
		Message:   guarded.Message.Text,
		SessionID: guarded.SessionID,
		Truncated: guarded.Message.Truncated,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrLLMNotConfigured):
		return errorFrame(apperrors.NewServiceUnavailableError(apperrors.CodeLLMNotConfigured, notConfiguredMessage))
	case resp != nil:
		cl.log.LogError(err, "Chat turn failed")
	default:
		cl.log.LogError(err, "Chat turn failed")
		return errorFrame(apperrors.FromError(err))
	}

	cl.sessionID = resp.SessionID
	return replyFrame(resp)
}

func (cl *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteJSON(frame); err != nil {
				cl.log.Warn("WebSocket write failed", "error", err)
				cl.abort()
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.abort()
				return
			}
		}
	}
}

// abort closes the connection so readPump stops, then drains send until
// readPump closes it.
func (cl *wsClient) abort() {
	_ = cl.conn.Close()
	for range cl.send {
	}
}

func replyFrame(resp *service.ChatResponse) pkgws.OutboundFrame {
	return pkgws.OutboundFrame{Type: pkgws.TypeReply, Reply: resp.Reply, SessionID: resp.SessionID, Error: resp.Error}
}

func errorFrame(appErr *apperrors.AppError) pkgws.OutboundFrame {
	return pkgws.OutboundFrame{Type: pkgws.TypeError, Error: appErr.Message, Code: appErr.Code, Details: appErr.Details}
}
