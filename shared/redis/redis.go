// Package redis provides the shared Redis client and a distributed lock used
// to serialize work on one conversation across replicas.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Config holds connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps a go-redis client
type Client struct {
	client *redis.Client
}

// NewClient creates a client; no connection is made until first use
func NewClient(cfg Config) *Client {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Client{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (c *Client) Close() error {
	return c.client.Close()
}

// ErrLockTimeout is returned when the lock could not be taken before the
// context ended
var ErrLockTimeout = errors.New("timed out waiting for lock")

const lockPrefix = "chat:lock:"

// release deletes the key only if it still holds our token
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a SET NX PX mutex keyed by conversation id
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
}

// NewLocker returns a locker whose keys expire after ttl if never released
func NewLocker(c *Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{client: c.client, ttl: ttl, poll: 50 * time.Millisecond}
}

// Lock blocks until key is acquired or ctx ends
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = release.Run(ctx, l.client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}
