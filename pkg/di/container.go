// Package di wires the chat backend's dependencies from configuration.
package di

import (
	"context"
	"errors"
	"fmt"

	"storefront-support/backend/ai"
	"storefront-support/backend/internal/repository"
	"storefront-support/backend/internal/service"
	"storefront-support/backend/pkg/config"
	"storefront-support/backend/pkg/health"
	"storefront-support/backend/pkg/logger"
	"storefront-support/backend/pkg/resilience"
	"storefront-support/backend/pkg/secrets"
	"storefront-support/backend/shared/observability"
	"storefront-support/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB                  *gorm.DB
	Logger              *logger.Logger
	Config              *config.Config
	Metrics             *observability.Metrics
	Secrets             *secrets.VaultManager
	Redis               *redis.Client
	Provider            ai.Provider
	Health              *health.Checker
	ConversationService *service.ConversationService
	MessageService      *service.MessageService
	ChatService         *service.ChatService
	RetentionService    *service.RetentionService
}

// New creates a new dependency injection container. A missing model
// credential is not an error: the chat service runs unconfigured.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.GetGlobal()
	}

	metrics, err := observability.NewMetrics(cfg.Telemetry.ServiceName, cfg.Server.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	vaultManager, err := secrets.NewVaultManager(secrets.VaultConfig{
		Enabled:     cfg.Vault.Enabled,
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		SecretsPath: cfg.Vault.SecretsPath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets manager: %w", err)
	}

	provider, err := newProvider(ctx, cfg, vaultManager, log)
	if err != nil {
		return nil, err
	}

	var (
		redisClient *redis.Client
		locker      service.Locker
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = redis.NewLocker(redisClient, cfg.Redis.LockTTL)
		log.Info("Using redis conversation lock", "addr", cfg.Redis.Addr)
	}

	breakerConfig := resilience.DefaultCircuitBreakerConfig("llm")
	breakerConfig.FailureThreshold = cfg.LLM.BreakerFails
	breakerConfig.RetryTimeout = cfg.LLM.BreakerWindow
	breakerConfig.IsFailure = service.BreakerCounts
	breaker := resilience.NewCircuitBreaker(breakerConfig, log)

	conversationRepo := repository.NewGormConversationRepository(db)
	conversationService := service.NewConversationService(conversationRepo, metrics, log)
	messageService := service.NewMessageService(repository.NewGormMessageRepository(db))

	chatConfig := service.DefaultChatServiceConfig()
	chatConfig.ContextLimit = cfg.Chat.ContextLimit
	chatConfig.MaxTokens = cfg.LLM.MaxTokens
	chatConfig.Temperature = cfg.LLM.Temperature
	chatConfig.Timeout = cfg.LLM.Timeout

	chatService := service.NewChatService(service.ChatDeps{
		Conversations: conversationService,
		Messages:      messageService,
		Provider:      provider,
		Locker:        locker,
		Breaker:       breaker,
		Metrics:       metrics,
		Logger:        log,
	}, chatConfig)

	c := &Container{
		DB:                  db,
		Logger:              log,
		Config:              cfg,
		Metrics:             metrics,
		Secrets:             vaultManager,
		Redis:               redisClient,
		Provider:            provider,
		ConversationService: conversationService,
		MessageService:      messageService,
		ChatService:         chatService,
		RetentionService:    service.NewRetentionService(conversationRepo, cfg.Chat.RetentionPeriod, metrics, log),
	}
	c.Health = c.newHealthChecker()
	return c, nil
}

// newProvider resolves the model credential from Vault or the environment
// and builds the provider, or returns nil when no credential exists
func newProvider(ctx context.Context, cfg *config.Config, m secrets.Manager, log *logger.Logger) (ai.Provider, error) {
	keyName := "OPENAI_API_KEY"
	if cfg.LLM.Provider == config.ProviderGemini {
		keyName = "GEMINI_API_KEY"
	}
	apiKey := secrets.Lookup(ctx, m, keyName)
	if apiKey == "" {
		apiKey = cfg.LLM.APIKey
	}

	provider, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Provider: cfg.LLM.Provider,
		APIKey:   apiKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	})
	if errors.Is(err, ai.ErrNotConfigured) {
		log.Warn("Language model API key not configured, chat replies are disabled", "provider", cfg.LLM.Provider, "key", keyName)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create language model provider: %w", err)
	}

	log.Info("Language model provider configured", "provider", provider.Name(), "model", cfg.LLM.Model)
	return provider, nil
}

func (c *Container) newHealthChecker() *health.Checker {
	checker := health.NewChecker(c.Logger, 0)
	checker.RegisterDatabaseCheck(func(ctx context.Context) error {
		return config.TestConnection(ctx, c.DB)
	})

	if c.Redis != nil {
		checker.RegisterCheck("redis", true, func(ctx context.Context) (health.Status, string, error) {
			if err := c.Redis.Ping(ctx); err != nil {
				return health.StatusDown, "Redis is unreachable", err
			}
			return health.StatusUp, "Redis connection is established", nil
		})
	}

	breaker := c.ChatService.Breaker()
	checker.RegisterCheck("llm", false, func(ctx context.Context) (health.Status, string, error) {
		if !c.ChatService.LLMConfigured() {
			return health.StatusDegraded, "Language model API key not configured", nil
		}
		if breaker.GetState() == resilience.StateOpen {
			return health.StatusDegraded, "Language model circuit open", nil
		}
		return health.StatusUp, "Language model provider " + c.ChatService.ProviderName(), nil
	})
	return checker
}

// Close releases the resources owned by the container. The database is
// closed by the caller that opened it.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	errs = append(errs, c.Metrics.Shutdown(ctx))
	return errors.Join(errs...)
}
