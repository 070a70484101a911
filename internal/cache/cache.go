package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"retail-bank-core/internal/config"
	"retail-bank-core/internal/logger"
)

const tokenKeyPrefix = "pseudonym:"

// TokenCache remembers the pseudonym token issued for a value hash. It never holds
// original values.
type TokenCache interface {
	GetToken(ctx context.Context, hash string) (token string, found bool, err error)
	SetToken(ctx context.Context, hash, token string) error
}

type redisTokenCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTokenCache(client *redis.Client, ttl time.Duration) TokenCache {
	return &redisTokenCache{client: client, ttl: ttl}
}

func (c *redisTokenCache) GetToken(ctx context.Context, hash string) (string, bool, error) {
	key := tokenKeyPrefix + hash
	logger.ExternalServiceCall("redis", "GET", "key", key)

	token, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		logger.ExternalServiceResult("redis", "GET", nil, "hit", false)
		return "", false, nil
	}
	logger.ExternalServiceResult("redis", "GET", err, "hit", err == nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to read token cache: %w", err)
	}
	return token, true, nil
}

func (c *redisTokenCache) SetToken(ctx context.Context, hash, token string) error {
	key := tokenKeyPrefix + hash
	logger.ExternalServiceCall("redis", "SET", "key", key, "ttl", c.ttl)

	err := c.client.Set(ctx, key, token, c.ttl).Err()
	logger.ExternalServiceResult("redis", "SET", err)
	if err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// nopTokenCache is used when redis is disabled.
type nopTokenCache struct{}

func NewNopTokenCache() TokenCache {
	return nopTokenCache{}
}

func (nopTokenCache) GetToken(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (nopTokenCache) SetToken(context.Context, string, string) error {
	return nil
}

// NewRedisClient connects to redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	logger.Info("Redis connection established", "address", addr)
	return rdb, nil
}

// FromConfig returns the redis-backed cache when enabled and a no-op cache otherwise.
// The returned close function is always safe to call.
func FromConfig(ctx context.Context, cfg config.RedisConfig) (TokenCache, func() error, error) {
	if !cfg.Enabled {
		return NewNopTokenCache(), func() error { return nil }, nil
	}
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	return NewRedisTokenCache(client, ttl), client.Close, nil
}
