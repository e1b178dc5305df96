package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteCache provides TTL-based caching using SQLite, so warm data survives restarts
type SQLiteCache struct {
	db         *sql.DB
	defaultTTL time.Duration
	now        func() time.Time
	logger     *logrus.Logger
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(config *Config, logger *logrus.Logger) (*SQLiteCache, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := sql.Open("sqlite", config.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	cache := &SQLiteCache{
		db:         db,
		defaultTTL: config.defaultTTL(),
		now:        config.clock(),
		logger:     logger,
	}

	if err := cache.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return cache, nil
}

// initializeSchema creates the cache table if it doesn't exist
func (c *SQLiteCache) initializeSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		stored_at_ms INTEGER NOT NULL,
		expires_at_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON cache_entries(expires_at_ms);
	`

	_, err := c.db.Exec(query)
	return err
}

// Get retrieves a cached entry if it exists and hasn't expired
func (c *SQLiteCache) Get(ctx context.Context, key string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT value, stored_at_ms, expires_at_ms FROM cache_entries WHERE key = ?`, key)

	var value []byte
	var storedAt, expiresAt int64
	err := row.Scan(&value, &storedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached entry: %w", err)
	}

	entry := &Entry{
		Key:       key,
		Value:     json.RawMessage(value),
		StoredAt:  time.UnixMilli(storedAt),
		ExpiresAt: time.UnixMilli(expiresAt),
	}

	if entry.IsExpired(c.now()) {
		if _, err := c.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key = ? AND expires_at_ms = ?`, key, expiresAt); err != nil {
			c.logger.Warnf("Failed to evict expired cache entry %s: %v", key, err)
		}
		return nil, nil
	}

	return entry, nil
}

// Set stores a value in the cache with TTL
func (c *SQLiteCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries (key, value, stored_at_ms, expires_at_ms) VALUES (?, ?, ?, ?)`,
		key, raw, now.UnixMilli(), now.Add(ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to cache value: %w", err)
	}

	return nil
}

// Delete removes a key from the cache
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry from the cache
func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// CleanExpired removes expired entries from the cache
func (c *SQLiteCache) CleanExpired(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at_ms <= ?`, c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to clean expired cache entries: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		c.logger.Debugf("Cleaned %d expired cache entries", rowsAffected)
	}

	return nil
}

// Close closes the database connection
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// GetStats returns cache statistics
func (c *SQLiteCache) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{Provider: ProviderSQLite}

	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&stats.TotalEntries)
	if err != nil {
		return stats, fmt.Errorf("failed to get total entries: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE expires_at_ms <= ?`, c.now().UnixMilli()).Scan(&stats.ExpiredEntries)
	if err != nil {
		return stats, fmt.Errorf("failed to get expired entries: %w", err)
	}
	stats.ValidEntries = stats.TotalEntries - stats.ExpiredEntries

	return stats, nil
}
