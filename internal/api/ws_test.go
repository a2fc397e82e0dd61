package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-support/backend/internal/knowledge"
	apperrors "storefront-support/backend/pkg/errors"
	pkgws "storefront-support/backend/pkg/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialChat(t *testing.T, f *apiFixture, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(f.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame any) pkgws.OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteJSON(frame))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var out pkgws.OutboundFrame
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestWebSocketPingPong(t *testing.T) {
	conn := dialChat(t, newAPIFixture(t, &stubProvider{}, nil), "")

	out := roundTrip(t, conn, gin.H{"type": "ping"})
	assert.Equal(t, pkgws.TypePong, out.Type)
}

func TestWebSocketConversation(t *testing.T) {
	provider := &stubProvider{reply: "Yes, we ship across India."}
	conn := dialChat(t, newAPIFixture(t, provider, nil), "")

	started := roundTrip(t, conn, gin.H{"type": "start"})
	require.Equal(t, pkgws.TypeReply, started.Type)
	assert.Equal(t, knowledge.WelcomeMessage(), started.Reply)
	require.NoError(t, uuid.Validate(started.SessionID))

	// no sessionId: the connection keeps the one from start
	reply := roundTrip(t, conn, gin.H{"type": "message", "message": "do you ship to Pune?"})
	require.Equal(t, pkgws.TypeReply, reply.Type)
	assert.Equal(t, "Yes, we ship across India.", reply.Reply)
	assert.Equal(t, started.SessionID, reply.SessionID)
	assert.Empty(t, reply.Error)
}

func TestWebSocketRejectsBadFrames(t *testing.T) {
	conn := dialChat(t, newAPIFixture(t, &stubProvider{reply: "ok"}, nil), "")

	out := roundTrip(t, conn, gin.H{"type": "message", "message": "   "})
	assert.Equal(t, pkgws.TypeError, out.Type)
	assert.Equal(t, apperrors.CodeValidationFailed, out.Code)

	out = roundTrip(t, conn, gin.H{"type": "dance"})
	assert.Equal(t, pkgws.TypeError, out.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, pkgws.TypeError, out.Type)

	// the connection survives bad frames
	out = roundTrip(t, conn, gin.H{"type": "ping"})
	assert.Equal(t, pkgws.TypePong, out.Type)
}

func TestWebSocketNotConfigured(t *testing.T) {
	conn := dialChat(t, newAPIFixture(t, nil, nil), "")

	out := roundTrip(t, conn, gin.H{"type": "message", "message": "hello"})
	assert.Equal(t, pkgws.TypeError, out.Type)
	assert.Equal(t, apperrors.CodeLLMNotConfigured, out.Code)
}

func TestWebSocketInvalidSessionQuery(t *testing.T) {
	f := newAPIFixture(t, &stubProvider{}, nil)
	srv := httptest.NewServer(f.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws?sessionId=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
