// Package cache stores finished verification results keyed by the
// case-folded request identity.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Em-Deesha/profverify/internal/domain"
	"github.com/Em-Deesha/profverify/internal/ports"
)

// DefaultPrefix namespaces every key written by Redis.
const DefaultPrefix = "profverify:"

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "profverify:"
}

// Redis implements ports.ResultCache on go-redis.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ ports.ResultCache = (*Redis)(nil)

// NewRedis creates a Redis-backed cache. The connection is established
// lazily on first use.
func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (c *Redis) resultKey(key string) string {
	return fmt.Sprintf("%sresult:%s", c.prefix, key)
}

// Get returns false with a nil error on a miss. A stored value that does
// not decode yields ErrCacheCorrupted.
func (c *Redis) Get(ctx context.Context, key string) (domain.VerificationResult, bool, error) {
	data, err := c.client.Get(ctx, c.resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.VerificationResult{}, false, nil
	}
	if err != nil {
		return domain.VerificationResult{}, false, ports.NewCacheError(key, "Get", err)
	}

	var result domain.VerificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.VerificationResult{}, false,
			ports.NewCacheError(key, "Get", fmt.Errorf("%w: %v", ports.ErrCacheCorrupted, err))
	}
	return result, true, nil
}

// Set stores result; a zero expiration keeps it until evicted.
func (c *Redis) Set(ctx context.Context, key string, result domain.VerificationResult, expiration time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return ports.NewCacheError(key, "Set", err)
	}
	if err := c.client.Set(ctx, c.resultKey(key), data, expiration).Err(); err != nil {
		return ports.NewCacheError(key, "Set", err)
	}
	return nil
}

// Delete removes key.
func (c *Redis) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.resultKey(key)).Err(); err != nil {
		return ports.NewCacheError(key, "Delete", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client.
func (c *Redis) Close() error {
	return c.client.Close()
}
