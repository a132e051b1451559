// Package cache holds short-lived JSON snapshots in Redis.
// Without a Redis client every read misses and every write is dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	usagePrefix = "usage:"
	// UsageTTL bounds staleness if an invalidation is lost
	UsageTTL = time.Minute
)

var (
	// ErrCacheMiss means the key is absent or no Redis is configured
	ErrCacheMiss = errors.New("cache miss")

	errNoRedis = errors.New("redis not configured")
)

// Service is the cache surface used by the services and the health check
type Service interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	GetUsage(ctx context.Context, userID string, dest any) error
	SetUsage(ctx context.Context, userID string, summary any) error
	InvalidateUsage(ctx context.Context, userID string) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

// NewService returns a Redis-backed cache, or a no-op cache for a nil client
func NewService(client *redis.Client) Service {
	if client == nil {
		return usageCache{store: noopStore{}}
	}
	return usageCache{store: redisStore{client: client}}
}

// UsageKey is the key of a user's usage summary
func UsageKey(userID string) string {
	return usagePrefix + userID
}

// store is the raw key/value layer under Service
type store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	IsAvailable() bool
	Ping(ctx context.Context) error
}

type usageCache struct {
	store
}

func (u usageCache) GetUsage(ctx context.Context, userID string, dest any) error {
	return u.Get(ctx, UsageKey(userID), dest)
}

func (u usageCache) SetUsage(ctx context.Context, userID string, summary any) error {
	return u.Set(ctx, UsageKey(userID), summary, UsageTTL)
}

func (u usageCache) InvalidateUsage(ctx context.Context, userID string) error {
	return u.Delete(ctx, UsageKey(userID))
}

type redisStore struct {
	client *redis.Client
}

func (r redisStore) Get(ctx context.Context, key string, dest any) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (r redisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, ttl).Err()
}

func (r redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r redisStore) IsAvailable() bool { return true }

func (r redisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type noopStore struct{}

func (noopStore) Get(context.Context, string, any) error                { return ErrCacheMiss }
func (noopStore) Set(context.Context, string, any, time.Duration) error { return nil }
func (noopStore) Delete(context.Context, ...string) error               { return nil }
func (noopStore) IsAvailable() bool                                     { return false }
func (noopStore) Ping(context.Context) error                            { return errNoRedis }
