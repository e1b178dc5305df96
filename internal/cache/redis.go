package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisPrefix = "nwdb:"

// RedisCache provides TTL-based caching shared between processes through Redis
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
	logger     *logrus.Logger
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(config *Config, logger *logrus.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	redisURL := config.RedisURL
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("Failed to connect to Redis at %s: %v", opts.Addr, err)
	} else {
		logger.Debugf("Connected to Redis at %s", opts.Addr)
	}

	return newRedisCacheWithClient(client, prefix, config, logger), nil
}

func newRedisCacheWithClient(client *redis.Client, prefix string, config *Config, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCache{
		client:     client,
		prefix:     prefix,
		defaultTTL: config.defaultTTL(),
		now:        config.clock(),
		logger:     logger,
	}
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

// Get retrieves a cached entry if it exists and hasn't expired
func (r *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cached entry: %w", err)
	}
	entry.Key = key

	// Redis expiry has second granularity; honour the recorded instant
	if entry.IsExpired(r.now()) {
		if err := r.client.Unlink(ctx, r.key(key)).Err(); err != nil {
			r.logger.Warnf("Failed to evict expired cache entry %s: %v", key, err)
		}
		return nil, nil
	}

	return &entry, nil
}

// Set stores a value in Redis with TTL
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}

	now := r.now()
	payload, err := json.Marshal(Entry{
		Key:       key,
		Value:     raw,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache value: %w", err)
	}
	return nil
}

// Delete removes a key from Redis
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Unlink(ctx, r.key(key)).Err()
}

// scanKeys calls fn with each batch of keys under this cache's prefix
func (r *RedisCache) scanKeys(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 1000).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// expiredKeys returns the keys of a batch whose recorded expiry has passed.
// Keys that vanished or hold undecodable values are skipped.
func (r *RedisCache) expiredKeys(ctx context.Context, keys []string) ([]string, error) {
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached entries: %w", err)
	}

	now := r.now()
	var expired []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			r.logger.Warnf("Skipping undecodable cache entry %s: %v", keys[i], err)
			continue
		}
		if entry.IsExpired(now) {
			expired = append(expired, keys[i])
		}
	}
	return expired, nil
}

// Clear removes every key under this cache's prefix
func (r *RedisCache) Clear(ctx context.Context) error {
	return r.scanKeys(ctx, func(keys []string) error {
		if err := r.client.Unlink(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to unlink keys: %w", err)
		}
		return nil
	})
}

// CleanExpired removes entries whose recorded expiry has passed but which
// Redis has not expired yet
func (r *RedisCache) CleanExpired(ctx context.Context) error {
	removed := 0
	err := r.scanKeys(ctx, func(keys []string) error {
		expired, err := r.expiredKeys(ctx, keys)
		if err != nil || len(expired) == 0 {
			return err
		}
		if err := r.client.Unlink(ctx, expired...).Err(); err != nil {
			return fmt.Errorf("failed to unlink expired keys: %w", err)
		}
		removed += len(expired)
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Debugf("Cleaned %d expired cache entries", removed)
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// GetStats counts keys under this cache's prefix
func (r *RedisCache) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{Provider: ProviderRedis}
	err := r.scanKeys(ctx, func(keys []string) error {
		expired, err := r.expiredKeys(ctx, keys)
		if err != nil {
			return err
		}
		stats.TotalEntries += len(keys)
		stats.ExpiredEntries += len(expired)
		return nil
	})
	if err != nil {
		return stats, err
	}
	stats.ValidEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats, nil
}
