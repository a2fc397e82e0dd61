package observability

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m, err := NewMetrics("support-chat", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	m.RecordReply(ctx, "ok")
	m.RecordLLMCall(ctx, "openai", "ok", 120*time.Millisecond)
	m.RecordConversationCreated(ctx)
	m.RecordPurged(ctx, 3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "chat_replies_total")
	assert.Contains(t, string(body), `outcome="ok"`)
	assert.Contains(t, string(body), "llm_call_duration_seconds")
	assert.Contains(t, string(body), "conversations_purged_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordReply(ctx, "ok")
		m.RecordLLMCall(ctx, "openai", "ok", time.Second)
		m.RecordConversationCreated(ctx)
		m.RecordPurged(ctx, 1)
	})
	assert.NoError(t, m.Shutdown(ctx))
}

func TestSetupTracingWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := SetupTracing("support-chat", "test", &buf)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "unit")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"unit"`)
}
