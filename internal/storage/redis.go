package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deusflow/curator/internal/cache"
)

// RedisKeyPrefix namespaces every cache key.
const RedisKeyPrefix = "curator:cache:"

// RedisCache stores the same envelope as FileCache under prefixed keys.
// Redis expiry is set as a backstop; freshness is still decided by
// created_at so every backend expires identically.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

var _ cache.Store = (*RedisCache)(nil)

// NewRedisCache connects and verifies the server with a short ping.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, now: time.Now}, nil
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) key(k string) string {
	return RedisKeyPrefix + cache.KeyFor(k)
}

func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := rc.client.Get(ctx, rc.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry cache.Entry
	if json.Unmarshal(raw, &entry) != nil {
		return nil, false, nil
	}
	if cache.Expired(entry.CreatedAt, rc.now(), rc.ttl) {
		if err := rc.client.Del(ctx, rc.key(key)).Err(); err != nil {
			return nil, false, fmt.Errorf("failed to remove expired entry: %w", err)
		}
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (rc *RedisCache) Set(ctx context.Context, key string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("cache payload for %q is not valid JSON", key)
	}
	data, err := json.Marshal(cache.Entry{CreatedAt: rc.now().Unix(), Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	// One extra minute so the lazy check, not redis, decides the boundary.
	if err := rc.client.Set(ctx, rc.key(key), data, rc.ttl+time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, rc.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Sweep scans the prefix and removes entries past their ttl.
func (rc *RedisCache) Sweep(ctx context.Context) (int, error) {
	now := rc.now()
	removed := 0
	err := rc.scan(ctx, func(keys []string) error {
		for _, k := range keys {
			raw, err := rc.client.Get(ctx, k).Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return err
			}
			var entry cache.Entry
			if json.Unmarshal(raw, &entry) != nil || !cache.Expired(entry.CreatedAt, now, rc.ttl) {
				continue
			}
			n, err := rc.client.Del(ctx, k).Result()
			if err != nil {
				return err
			}
			removed += int(n)
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to sweep cache: %w", err)
	}
	return removed, nil
}

func (rc *RedisCache) Clear(ctx context.Context) error {
	err := rc.scan(ctx, func(keys []string) error {
		if len(keys) == 0 {
			return nil
		}
		return rc.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (rc *RedisCache) scan(ctx context.Context, fn func([]string) error) error {
	var cursor uint64
	for {
		keys, next, err := rc.client.Scan(ctx, cursor, RedisKeyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if err := fn(keys); err != nil {
			return err
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
