// Package store provides KeyedStore implementations for the auth package:
// Redis for production and an in-memory map for tests and local setups.
package store

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	"github.com/docuflow/go-auth"
)

// RedisStore implements auth.KeyedStore over a Redis client.
type RedisStore struct {
	client redis.UniversalClient
}

var _ auth.KeyedStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. The caller owns the client's
// lifecycle.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis connects to addr and returns a store over the new client.
func DialRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to connect to redis")
	}

	return NewRedisStore(client), nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "redis set failed")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrKeyNotFound
		}
		return "", errors.Wrap(err, errors.CategoryOperation, "redis get failed")
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "redis del failed")
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryOperation, "redis exists failed")
	}
	return n > 0, nil
}
