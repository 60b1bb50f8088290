package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedisStore(client *redis.Client, baseTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

// Set refreshes the TTL on every write; jitter spreads expiry of sessions created together.
func (r RedisStore) Set(ctx context.Context, key, value string) error {
	var ttl time.Duration
	if r.baseTTL > 0 {
		jitter := time.Duration(rand.Intn(5)) * time.Minute
		ttl = r.baseTTL + jitter
	}
	if err := r.client.Set(ctx, redisKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return fmt.Sprintf("market:%s", key)
}
