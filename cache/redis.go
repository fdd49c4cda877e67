package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tripmesh/tripmesh/config"
	"github.com/tripmesh/tripmesh/schema"
)

// redisStore backs the caches with Redis. SetNX maps directly to Redis
// SET NX EX, which gives the atomic set-if-absent semantics the caches need.
type redisStore struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store from config.
func NewRedis(cfg config.RedisConfig) Store {
	return &redisStore{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// NewRedisWithClient wraps an existing client; tests pass a miniredis-backed one.
func NewRedisWithClient(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, &schema.CacheUnavailableError{Op: "get", Err: err}
	}
	return data, nil
}

func (s *redisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, &schema.CacheUnavailableError{Op: "setnx", Err: err}
	}
	return ok, nil
}

// NewStore builds a cache store from config.
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemory(cfg.MaxEntries), nil
	case "redis":
		return NewRedis(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("unknown cache store %q", cfg.Store)
	}
}
