package cache

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. TTL is applied by Redis at write
// time; Size reports the number of keys in the selected database.
type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore with the given TTL.
func NewRedisStore(client *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the value for key, or false when absent or expired.
func (s *RedisStore) Get(ctx context.Context, key Key) ([]byte, bool) {
	value, err := s.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores value under key with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, key Key, value []byte) error {
	return s.client.Set(ctx, key.String(), value, s.ttl).Err()
}

// Size returns the number of keys currently held.
func (s *RedisStore) Size(ctx context.Context) (int, error) {
	count, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
