package objectives

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/logger"
)

type countingLookup struct {
	calls  int
	result *NameLink
	err    error
}

func (c *countingLookup) Lookup(ctx context.Context, id string) (*NameLink, error) {
	c.calls++
	return c.result, c.err
}

func TestCached_RemembersHits(t *testing.T) {
	store := cache.NewMemoryCache()
	inner := &countingLookup{result: &NameLink{Name: "Young Wolf", Link: strPtr("https://nwdb.info/db/creature/wolf01")}}
	lookup := Cached(store, cache.RefCreature, inner.Lookup, time.Hour, time.Minute, logger.Discard())
	ctx := context.Background()

	for range 3 {
		got, err := lookup(ctx, "wolf01")
		require.NoError(t, err)
		assert.Equal(t, "[Young Wolf](https://nwdb.info/db/creature/wolf01)", got.Markdown())
	}
	assert.Equal(t, 1, inner.calls)

	entry, err := store.Get(ctx, "creature:wolf01")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.IsNegative())
}

func TestCached_RemembersNotFound(t *testing.T) {
	store := cache.NewMemoryCache()
	inner := &countingLookup{err: ErrNotFound}
	lookup := Cached(store, cache.RefZone, inner.Lookup, time.Hour, time.Minute, logger.Discard())
	ctx := context.Background()

	for range 3 {
		_, err := lookup(ctx, "42")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 1, inner.calls)

	entry, err := store.Get(ctx, "zone:42")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.IsNegative())
}

func TestCached_NamelessResultIsNotFound(t *testing.T) {
	store := cache.NewMemoryCache()
	inner := &countingLookup{result: &NameLink{Name: " "}}
	lookup := Cached(store, cache.RefGameMode, inner.Lookup, time.Hour, time.Minute, logger.Discard())

	_, err := lookup(context.Background(), "DungeonAmrine")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = lookup(context.Background(), "DungeonAmrine")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, inner.calls)
}

func TestCached_DoesNotRememberFailures(t *testing.T) {
	store := cache.NewMemoryCache()
	inner := &countingLookup{err: errors.New("HTTP 503: Service Unavailable")}
	lookup := Cached(store, cache.RefCreature, inner.Lookup, time.Hour, time.Minute, logger.Discard())
	ctx := context.Background()

	_, err := lookup(ctx, "wolf01")
	assert.EqualError(t, err, "HTTP 503: Service Unavailable")
	_, err = lookup(ctx, "wolf01")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.calls)

	entry, err := store.Get(ctx, "creature:wolf01")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestCached_NegativeExpiresBeforePositive(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewMemoryCacheWithConfig(&cache.Config{
		Clock: func() time.Time { return now },
	}, logger.Discard())

	missing := &countingLookup{err: ErrNotFound}
	found := &countingLookup{result: &NameLink{Name: "Windward Reach"}}
	negative := Cached(store, cache.RefZone, missing.Lookup, 24*time.Hour, 15*time.Minute, logger.Discard())
	positive := Cached(store, cache.RefCreature, found.Lookup, 24*time.Hour, 15*time.Minute, logger.Discard())
	ctx := context.Background()

	negative(ctx, "1")
	positive(ctx, "1")

	now = now.Add(15 * time.Minute)
	negative(ctx, "1")
	positive(ctx, "1")

	assert.Equal(t, 2, missing.calls)
	assert.Equal(t, 1, found.calls)
}

// failingStore reads as empty and rejects every write
type failingStore struct {
	cache.Cache
}

func (failingStore) Get(ctx context.Context, key string) (*cache.Entry, error) {
	return nil, nil
}

func (failingStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("disk full")
}

func TestCached_LogsWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, false)
	ctx := context.Background()

	found := &countingLookup{result: &NameLink{Name: "Young Wolf"}}
	got, err := Cached(failingStore{}, cache.RefCreature, found.Lookup, time.Hour, time.Minute, log)(ctx, "wolf01")
	require.NoError(t, err)
	assert.Equal(t, "Young Wolf", got.Name)

	missing := &countingLookup{err: ErrNotFound}
	_, err = Cached(failingStore{}, cache.RefZone, missing.Lookup, time.Hour, time.Minute, log)(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)

	out := buf.String()
	assert.Contains(t, out, "Failed to cache creature:wolf01: disk full")
	assert.Contains(t, out, "Failed to cache negative zone:42: disk full")
}
