// Package secrets resolves credentials from Vault with an environment
// fallback.
package secrets

import (
	"context"
	"errors"
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// Lookup returns the first non-empty secret among keys, or "" if none is set
func Lookup(ctx context.Context, m Manager, keys ...string) string {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if v, err := m.GetSecret(ctx, key); err == nil && v != "" {
			return v
		}
	}
	return ""
}
