package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"storefront-support/backend/pkg/cache"
	"storefront-support/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig holds configuration for Vault client
type VaultConfig struct {
	Enabled   bool
	Address   string
	Token     string
	Namespace string
	// SecretsPath is "<kv mount>/<secret path>", e.g. "secret/storefront-support"
	SecretsPath string
	Timeout     time.Duration
	MaxRetries  int
	CacheTTL    time.Duration
}

// VaultManager reads secrets from a KV v2 engine. Keys missing there, or all
// keys when Vault is disabled, are read from the environment.
type VaultManager struct {
	client *vault.Client
	config VaultConfig
	mount  string
	path   string
	cache  *cache.Cache[string]
	log    *logger.Logger
	getenv func(string) string
}

// NewVaultManager creates a manager. With Enabled false no client is built.
func NewVaultManager(config VaultConfig, log *logger.Logger) (*VaultManager, error) {
	if log == nil {
		log = logger.GetGlobal()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}

	m := &VaultManager{
		config: config,
		cache:  cache.New[string](config.CacheTTL, 0),
		log:    log.WithComponent("secrets"),
		getenv: os.Getenv,
	}
	if !config.Enabled {
		return m, nil
	}

	if config.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if config.Token == "" {
		return nil, ErrNoVaultToken
	}
	m.mount, m.path = splitSecretsPath(config.SecretsPath)

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	if config.Timeout > 0 {
		vaultConfig.Timeout = config.Timeout
	}
	vaultConfig.MaxRetries = config.MaxRetries

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}
	m.client = client

	return m, nil
}

func splitSecretsPath(p string) (mount, path string) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "secret", "storefront-support"
	}
	mount, path, found := strings.Cut(p, "/")
	if !found {
		return "secret", mount
	}
	return mount, strings.TrimPrefix(path, "data/")
}

// GetSecret retrieves a secret from Vault, with fallback to the environment
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if cached, found := m.cache.Get(key); found {
		return cached, nil
	}

	if m.client == nil {
		return m.getFromEnvironment(key)
	}

	value, err := m.getFromVault(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			m.log.Debug("Secret not in Vault, using environment", "key", key)
			return m.getFromEnvironment(key)
		}
		return "", err
	}

	m.cacheSecret(key, value)
	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("Failed to get secret, using default value", "key", key, "error", err.Error())
		}
		return defaultValue
	}
	return value
}

func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.KVv2(m.mount).Get(ctx, m.path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", ErrSecretNotFound
		}
		m.log.Error("Failed to read secret from Vault", "mount", m.mount, "path", m.path, "error", err.Error())
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// getFromEnvironment maps keys like "openai-api.key" to OPENAI_API_KEY
func (m *VaultManager) getFromEnvironment(key string) (string, error) {
	envKey := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))

	value := m.getenv(envKey)
	if value == "" {
		return "", ErrSecretNotFound
	}

	m.cacheSecret(key, value)
	return value, nil
}

func (m *VaultManager) cacheSecret(key, value string) {
	m.cache.Set(key, value)
}

// StartCacheRefresh sweeps expired secrets every CacheTTL until ctx is
// cancelled, so rotated values are picked up on the next read
func (m *VaultManager) StartCacheRefresh(ctx context.Context) {
	m.cache.StartCleanup(ctx, m.config.CacheTTL)
}
