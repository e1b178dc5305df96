package objectives

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aeternum-guides/nwdb/internal/cache"
)

// Cached wraps lookup with "<kind>:<id>" caching. Resolved names live for
// positiveTTL; ErrNotFound is remembered as a negative entry for negativeTTL.
// Other errors are returned without caching so the next call retries.
// Cache failures are logged and never fail the lookup.
func Cached(store cache.Cache, kind cache.RefKind, lookup Lookup, positiveTTL, negativeTTL time.Duration, logger *logrus.Logger) Lookup {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(ctx context.Context, id string) (*NameLink, error) {
		key := cache.RefKey(kind, id)

		var hit NameLink
		found, negative, err := cache.GetJSON(ctx, store, key, &hit)
		switch {
		case err != nil:
			logger.Warnf("Reference cache read failed for %s, resolving: %v", key, err)
		case found:
			return &hit, nil
		case negative:
			return nil, ErrNotFound
		}

		result, err := resolve(ctx, lookup, id)
		if errors.Is(err, ErrNotFound) {
			if err := cache.SetNegative(ctx, store, key, negativeTTL); err != nil {
				logger.Warnf("Failed to cache negative %s: %v", key, err)
			}
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		if err := store.Set(ctx, key, result, positiveTTL); err != nil {
			logger.Warnf("Failed to cache %s: %v", key, err)
		}
		return result, nil
	}
}
