package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Supported cache providers
const (
	ProviderMemory = "memory"
	ProviderSQLite = "sqlite"
	ProviderRedis  = "redis"
)

// Config holds configuration options for a cache backend
type Config struct {
	Provider   string
	DefaultTTL time.Duration
	// SQLitePath is the database file for the sqlite provider
	SQLitePath string
	// RedisURL is a redis:// URL for the redis provider
	RedisURL string
	// KeyPrefix namespaces keys in shared backends
	KeyPrefix string
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

func (c *Config) defaultTTL() time.Duration {
	if c == nil || c.DefaultTTL <= 0 {
		return DefaultTTL
	}
	return c.DefaultTTL
}

func (c *Config) clock() func() time.Time {
	if c == nil || c.Clock == nil {
		return time.Now
	}
	return c.Clock
}

// New creates a cache for the configured provider
func New(config *Config, logger *logrus.Logger) (Cache, error) {
	provider := ProviderMemory
	if config != nil && config.Provider != "" {
		provider = strings.ToLower(config.Provider)
	}

	switch provider {
	case ProviderMemory:
		return NewMemoryCacheWithConfig(config, logger), nil
	case ProviderSQLite:
		if config.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite cache requires a database path")
		}
		return NewSQLiteCache(config, logger)
	case ProviderRedis:
		return NewRedisCache(config, logger)
	default:
		return nil, fmt.Errorf("unsupported cache provider '%s'", provider)
	}
}
