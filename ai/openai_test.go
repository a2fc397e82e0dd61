package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1/", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return p
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{APIKey: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIProviderSendsTurnsInOrder(t *testing.T) {
	var got openAIRequest
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  We ship pan-India.  "}}]}`))
	})

	reply, err := p.Complete(context.Background(), Request{
		Turns: []Turn{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "Do you ship?"},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "We ship pan-India.", reply)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "Do you ship?", got.Messages[3].Content)
}

func TestOpenAIProviderClassifiesStatus(t *testing.T) {
	cases := map[int]FailureKind{
		http.StatusTooManyRequests:     FailureRateLimited,
		http.StatusUnauthorized:        FailureUnauthorized,
		http.StatusInternalServerError: FailureUnavailable,
		http.StatusBadGateway:          FailureUnavailable,
		http.StatusServiceUnavailable:  FailureUnavailable,
		http.StatusBadRequest:          FailureUnknown,
	}

	for status, want := range cases {
		t.Run(fmt.Sprintf("status_%d", status), func(t *testing.T) {
			p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream said no","type":"x"}}`))
			})

			_, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})
			require.Error(t, err)

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, status, pe.StatusCode)
			assert.Equal(t, "upstream said no", pe.Message)
			assert.Equal(t, want, Classify(err))
		})
	}
}

func TestOpenAIProviderEmptyReply(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	})

	_, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, ErrEmptyReply)
	assert.Equal(t, FailureUnknown, Classify(err))
}

func TestOpenAIProviderHonoursDeadline(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, Request{Turns: []Turn{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Equal(t, FailureTimeout, Classify(err))
}
