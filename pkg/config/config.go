package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Supported values for Database.Driver
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported values for LLM.Provider
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port            string
		BindAddress     string
		GRPCPort        string
		Env             string
		Version         string
		Timeout         time.Duration
		ShutdownTimeout time.Duration
	}

	// Database configuration
	Database struct {
		Driver   string
		Path     string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Retries  int
		Timeout  time.Duration
	}

	// Language model configuration
	LLM struct {
		Provider      string
		APIKey        string
		BaseURL       string
		Model         string
		MaxTokens     int
		Temperature   float64
		Timeout       time.Duration
		BreakerFails  uint
		BreakerWindow time.Duration
	}

	// Chat behaviour
	Chat struct {
		ContextLimit      int
		MaxMessageLength  int
		RetentionPeriod   time.Duration
		RetentionInterval time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		FrontendURL    string
		MaxBodySize    int64
	}

	// Redis backs the cross-replica conversation lock
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
		LockTTL  time.Duration
	}

	// Vault secrets lookup
	Vault struct {
		Enabled     bool
		Address     string
		Token       string
		Namespace   string
		SecretsPath string
	}

	// Observability
	Telemetry struct {
		TracingEnabled bool
		ServiceName    string
	}

	// OpenAPI request validation
	OpenAPI struct {
		SchemaPath string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New returns the process-wide Config, loading it from the environment on first use
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		_ = godotenv.Load()
		instance = Load()
	})
	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	return New()
}

// Load builds a fresh Config from environment variables
func Load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "3001")
	cfg.Server.BindAddress = getEnvString("BIND_ADDRESS", ":"+cfg.Server.Port)
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Version = getEnvString("APP_VERSION", "1.0.0")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	// Database config
	cfg.Database.Driver = strings.ToLower(getEnvString("DB_DRIVER", DriverSQLite))
	cfg.Database.Path = getEnvString("DB_PATH", "./data/chat.db")
	cfg.Database.DSN = getEnvString("DATABASE_DSN", "")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "support_chat")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Retries = getEnvInt("DB_CONNECT_RETRIES", 5)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// LLM config
	cfg.LLM.Provider = strings.ToLower(getEnvString("LLM_PROVIDER", ProviderOpenAI))
	switch cfg.LLM.Provider {
	case ProviderGemini:
		cfg.LLM.APIKey = getEnvString("GEMINI_API_KEY", "")
		cfg.LLM.Model = getEnvString("LLM_MODEL", "gemini-2.0-flash")
		cfg.LLM.BaseURL = getEnvString("LLM_BASE_URL", "")
	default:
		cfg.LLM.APIKey = getEnvString("OPENAI_API_KEY", "")
		cfg.LLM.Model = getEnvString("LLM_MODEL", "gpt-4o-mini")
		cfg.LLM.BaseURL = getEnvString("LLM_BASE_URL", "https://api.openai.com/v1")
	}
	cfg.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", 500)
	cfg.LLM.Temperature = getEnvFloat("LLM_TEMPERATURE", 0.7)
	cfg.LLM.Timeout = getEnvDuration("LLM_TIMEOUT", 30*time.Second)
	cfg.LLM.BreakerFails = uint(getEnvInt("LLM_BREAKER_FAILURES", 5))
	cfg.LLM.BreakerWindow = getEnvDuration("LLM_BREAKER_RETRY", 30*time.Second)

	// Chat config
	cfg.Chat.ContextLimit = getEnvInt("CHAT_CONTEXT_LIMIT", 10)
	cfg.Chat.MaxMessageLength = getEnvInt("CHAT_MAX_MESSAGE_LENGTH", 2000)
	cfg.Chat.RetentionPeriod = getEnvDuration("RETENTION_PERIOD", 0)
	cfg.Chat.RetentionInterval = getEnvDuration("RETENTION_INTERVAL", time.Hour)

	// Security config
	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{
		"http://localhost:5173",
		"https://soccer-store-ai-chat-bot.vercel.app",
	})
	cfg.Security.FrontendURL = getEnvString("FRONTEND_URL", "")
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 100<<10)

	// Redis config
	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnvString("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.LockTTL = getEnvDuration("REDIS_LOCK_TTL", 60*time.Second)

	// Vault config
	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Namespace = getEnvString("VAULT_NAMESPACE", "")
	cfg.Vault.SecretsPath = getEnvString("VAULT_SECRETS_PATH", "support-chat")

	// Telemetry config
	cfg.Telemetry.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Telemetry.ServiceName = getEnvString("SERVICE_NAME", "support-chat")

	cfg.OpenAPI.SchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	return cfg
}

// Validate rejects settings the chat pipeline cannot run with
func (c *Config) Validate() error {
	if c.Chat.ContextLimit <= 0 {
		return fmt.Errorf("CHAT_CONTEXT_LIMIT must be positive, got %d", c.Chat.ContextLimit)
	}
	if c.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("CHAT_MAX_MESSAGE_LENGTH must be positive, got %d", c.Chat.MaxMessageLength)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
