// Package redis provides a cache.Store backed by a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hay-kot/pulse/internal/core/cache"
)

// DefaultPrefix namespaces every key written by pulse.
const DefaultPrefix = "pulse:"

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 500

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// CacheStore implements cache.Store on top of Redis. Expiry is delegated to
// Redis key TTLs.
type CacheStore struct {
	client *redis.Client
	prefix string
}

// NewCacheStore connects to Redis and verifies the connection with PING.
func NewCacheStore(ctx context.Context, opts Options) (*CacheStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}

	return NewFromClient(client, opts.Prefix), nil
}

// NewFromClient wraps an existing client. An empty prefix uses DefaultPrefix.
func NewFromClient(client *redis.Client, prefix string) *CacheStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CacheStore{client: client, prefix: prefix}
}

func (s *CacheStore) key(k string) string {
	return s.prefix + k
}

// Get returns the value for key, or cache.ErrMiss.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set stores value under key. A ttl of zero or less never expires.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *CacheStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Prune is a no-op: Redis evicts expired keys itself.
func (s *CacheStore) Prune(ctx context.Context) (int, error) {
	return 0, nil
}

// Clear deletes every key under the store prefix.
func (s *CacheStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the underlying connection pool.
func (s *CacheStore) Close() error {
	return s.client.Close()
}

var _ cache.Store = (*CacheStore)(nil)
