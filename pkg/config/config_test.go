package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"storefront-support/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CHAT_CONTEXT_LIMIT", "")

	cfg := Load()

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 500, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 10, cfg.Chat.ContextLimit)
	assert.Equal(t, 2000, cfg.Chat.MaxMessageLength)
	assert.Equal(t, int64(100<<10), cfg.Security.MaxBodySize)
	assert.Zero(t, cfg.Chat.RetentionPeriod)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("CHAT_CONTEXT_LIMIT", "4")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("BIND_ADDRESS", "127.0.0.1:9000")

	cfg := Load()

	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Chat.ContextLimit)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.BindAddress)
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := Load()
	cfg.Chat.ContextLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "chat.db?"+sqlitePragmas, SQLiteDSN("chat.db"))
	assert.Equal(t, "file:x?mode=memory&"+sqlitePragmas, SQLiteDSN("file:x?mode=memory"))
}

func TestNewDBOpensSQLiteFile(t *testing.T) {
	cfg := Load()
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "chat.db")
	cfg.Database.Retries = 1

	db, err := NewDB(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB(db) })

	assert.NoError(t, TestConnection(context.Background(), db))

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}
