package service

import (
	"context"
	"testing"
	"time"

	"storefront-support/backend/ai"
	"storefront-support/backend/internal/models"
	"storefront-support/backend/internal/repository"
	"storefront-support/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContext(t *testing.T) {
	history := []models.Message{
		{Sender: models.SenderUser, Content: "Do you ship to Pune?"},
		{Sender: models.SenderAI, Content: "Yes, 3–6 business days."},
	}

	turns := BuildContext("prompt", history, "And COD?")
	assert.Equal(t, []ai.Turn{
		{Role: ai.RoleSystem, Content: "prompt"},
		{Role: ai.RoleUser, Content: "Do you ship to Pune?"},
		{Role: ai.RoleAssistant, Content: "Yes, 3–6 business days."},
		{Role: ai.RoleUser, Content: "And COD?"},
	}, turns)

	assert.Len(t, BuildContext("prompt", nil, "hi"), 2)
}

func TestMapSender(t *testing.T) {
	assert.Equal(t, ai.RoleUser, MapSender(models.SenderUser))
	assert.Equal(t, ai.RoleAssistant, MapSender(models.SenderAI))
}

func TestFallbackRepliesAreDistinct(t *testing.T) {
	kinds := []ai.FailureKind{
		ai.FailureRateLimited,
		ai.FailureUnauthorized,
		ai.FailureUnavailable,
		ai.FailureTimeout,
		ai.FailureUnknown,
	}

	seen := map[string]bool{}
	for _, k := range kinds {
		reply := FallbackReply(k)
		assert.NotEmpty(t, reply, k)
		assert.False(t, seen[reply], "duplicate fallback for %s", k)
		seen[reply] = true
	}
	assert.Equal(t, FallbackReply(ai.FailureUnknown), FallbackReply("something-else"))
}

var _ Locker = (*LocalLocker)(nil)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "a")
	require.NoError(t, err)

	other, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan func())
	go func() {
		u, err := l.Lock(ctx, "a")
		assert.NoError(t, err)
		acquired <- u
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	unlock()

	select {
	case u := <-acquired:
		u()
	case <-time.After(time.Second):
		t.Fatal("lock not handed over")
	}
	assert.Zero(t, l.size())
}

func TestResolve(t *testing.T) {
	f := newFixture(t, &fakeProvider{})
	ctx := context.Background()

	conv, created, err := f.conversations.Resolve(ctx, "")
	require.NoError(t, err)
	assert.True(t, created)

	same, created, err := f.conversations.Resolve(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, same.ID)

	for _, id := range []string{uuid.NewString(), "garbage"} {
		fresh, created, err := f.conversations.Resolve(ctx, id)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, id, fresh.ID)
	}
}

func TestConversationTouchAndGet(t *testing.T) {
	f := newFixture(t, &fakeProvider{})
	ctx := context.Background()

	conv, err := f.conversations.Create(ctx)
	require.NoError(t, err)

	later := conv.UpdatedAt.Add(2 * time.Hour)
	f.conversations.now = func() time.Time { return later }
	require.NoError(t, f.conversations.Touch(ctx, conv.ID))

	got, err := f.conversations.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, later, got.UpdatedAt, time.Second)
	assert.WithinDuration(t, conv.CreatedAt, got.CreatedAt, time.Second)

	assert.ErrorIs(t, f.conversations.Touch(ctx, uuid.NewString()), ErrConversationNotFound)
	_, err = f.conversations.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMessageServiceRejectsUnknownSender(t *testing.T) {
	f := newFixture(t, &fakeProvider{})
	conv, err := f.conversations.Create(context.Background())
	require.NoError(t, err)

	_, err = f.messages.Append(context.Background(), conv.ID, models.Sender("system"), "prompt")
	assert.Error(t, err)

	_, err = f.messages.Append(context.Background(), uuid.NewString(), models.SenderUser, "hi")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRetentionPurge(t *testing.T) {
	f := newFixture(t, &fakeProvider{})
	ctx := context.Background()

	old := time.Now().UTC().Add(-72 * time.Hour)
	stale := &models.Conversation{ID: uuid.NewString(), CreatedAt: old, UpdatedAt: old}
	require.NoError(t, f.convRepo.Create(ctx, stale))

	active, err := f.conversations.Create(ctx)
	require.NoError(t, err)

	retention := NewRetentionService(f.convRepo, 24*time.Hour, nil, logger.Discard())
	removed, err := retention.Purge(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	ok, err := f.conversations.Exists(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.conversations.Exists(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRetentionStartSweeps(t *testing.T) {
	f := newFixture(t, &fakeProvider{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	old := time.Now().UTC().Add(-2 * time.Hour)
	stale := &models.Conversation{ID: uuid.NewString(), CreatedAt: old, UpdatedAt: old}
	require.NoError(t, f.convRepo.Create(ctx, stale))

	var repo repository.ConversationRepository = f.convRepo
	NewRetentionService(repo, time.Hour, nil, logger.Discard()).Start(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		ok, err := f.conversations.Exists(context.Background(), stale.ID)
		return err == nil && !ok
	}, 2*time.Second, 10*time.Millisecond)
}
