package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by RedisStore
const DefaultRedisPrefix = "remote-media:"

// RedisStore is a Redis-based implementation of CacheStore
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-based cache store. The connection is not
// checked here: an unreachable server surfaces as errors from Get and Set,
// which the cache treats as misses.
func NewRedisStore(address, password string, db int) *RedisStore {
	return NewRedisStoreFromClient(redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}))
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
}

func (r *RedisStore) key(group, key string) string {
	return r.prefix + group + ":" + key
}

// Get retrieves a value. redis.Nil is reported as a miss, not an error.
func (r *RedisStore) Get(ctx context.Context, group, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.key(group, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores a value with ttl; Redis handles expiration
func (r *RedisStore) Set(ctx context.Context, group, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.key(group, key), value, ttl).Err()
}

// Ping checks the Redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Size returns the approximate number of stored entries
func (r *RedisStore) Size() int {
	ctx := context.Background()
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 500).Result()
		if err != nil {
			return count
		}
		count += len(keys)
		if next == 0 {
			return count
		}
		cursor = next
	}
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
