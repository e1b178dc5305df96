package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is used by Set when no explicit TTL is given.
const DefaultTTL = time.Hour

// negativeMarker is the JSON encoding of a known-negative lookup.
var negativeMarker = []byte("false")

// Cache defines the interface for caching upstream data with TTL support
type Cache interface {
	// Get retrieves a live entry, or nil if the key is absent or expired.
	// Expired entries are evicted as a side effect.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores value as JSON. A ttl <= 0 uses the cache's default TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a single key
	Delete(ctx context.Context, key string) error

	// Clear removes every entry
	Clear(ctx context.Context) error

	// CleanExpired removes expired entries from the cache
	CleanExpired(ctx context.Context) error

	// Close closes the cache and cleans up resources
	Close() error

	// GetStats returns cache statistics
	GetStats(ctx context.Context) (Stats, error)
}

// Entry is a cached JSON value and its expiry.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	StoredAt  time.Time       `json:"stored_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// IsNegative reports whether the entry is the explicit "known negative" marker.
func (e *Entry) IsNegative() bool {
	return bytes.Equal(bytes.TrimSpace(e.Value), negativeMarker)
}

// IsExpired reports whether the entry is expired at the given instant.
func (e *Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the remaining lifetime relative to now, or 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Decode unmarshals the cached value into dest.
func (e *Entry) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Value, dest); err != nil {
		return fmt.Errorf("failed to decode cached value for %q: %w", e.Key, err)
	}
	return nil
}

// Stats summarizes cache contents.
type Stats struct {
	Provider       string `json:"provider"`
	TotalEntries   int    `json:"total_entries"`
	ExpiredEntries int    `json:"expired_entries"`
	ValidEntries   int    `json:"valid_entries"`
}

// SetNegative records that a lookup for key resolved to nothing.
func SetNegative(ctx context.Context, c Cache, key string, ttl time.Duration) error {
	return c.Set(ctx, key, false, ttl)
}

// GetJSON loads key into dest. It reports found=false for misses and for
// negative markers; negative reports the latter.
func GetJSON(ctx context.Context, c Cache, key string, dest interface{}) (found bool, negative bool, err error) {
	entry, err := c.Get(ctx, key)
	if err != nil || entry == nil {
		return false, false, err
	}
	if entry.IsNegative() {
		return false, true, nil
	}
	if err := entry.Decode(dest); err != nil {
		return false, false, err
	}
	return true, false, nil
}
