package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MemoryCache provides TTL-based caching using in-memory storage
type MemoryCache struct {
	data       map[string]*Entry
	mutex      sync.RWMutex
	defaultTTL time.Duration
	now        func() time.Time
	logger     *logrus.Logger
}

// NewMemoryCache creates a new in-memory cache with default settings
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithConfig(nil, nil)
}

// NewMemoryCacheWithConfig creates a new in-memory cache
func NewMemoryCacheWithConfig(config *Config, logger *logrus.Logger) *MemoryCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MemoryCache{
		data:       make(map[string]*Entry),
		defaultTTL: config.defaultTTL(),
		now:        config.clock(),
		logger:     logger,
	}
}

// Get retrieves a cached entry if it exists and hasn't expired
func (c *MemoryCache) Get(ctx context.Context, key string) (*Entry, error) {
	c.mutex.RLock()
	entry, exists := c.data[key]
	c.mutex.RUnlock()
	if !exists {
		return nil, nil
	}

	if entry.IsExpired(c.now()) {
		c.mutex.Lock()
		// Re-check under the write lock; a concurrent Set may have replaced it
		if current, ok := c.data[key]; ok && current.IsExpired(c.now()) {
			delete(c.data, key)
		}
		c.mutex.Unlock()
		return nil, nil
	}

	return entry, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	entry := &Entry{
		Key:       key,
		Value:     raw,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[key] = entry

	return nil
}

// Delete removes a key from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.data, key)
	return nil
}

// Clear removes every entry from the cache
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]*Entry)
	return nil
}

// CleanExpired removes expired entries from the cache
func (c *MemoryCache) CleanExpired(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	var removed int
	for key, entry := range c.data {
		if entry.IsExpired(now) {
			delete(c.data, key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debugf("Cleaned %d expired cache entries", removed)
	}

	return nil
}

// Close drops all entries; the memory cache holds no other resources
func (c *MemoryCache) Close() error {
	return c.Clear(context.Background())
}

// GetStats returns cache statistics
func (c *MemoryCache) GetStats(ctx context.Context) (Stats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	stats := Stats{Provider: ProviderMemory, TotalEntries: len(c.data)}
	for _, entry := range c.data {
		if entry.IsExpired(now) {
			stats.ExpiredEntries++
		}
	}
	stats.ValidEntries = stats.TotalEntries - stats.ExpiredEntries

	return stats, nil
}
