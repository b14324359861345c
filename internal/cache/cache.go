// Package cache provides a memoizing cache-or-compute helper over a CacheStore.
package cache

import (
	"context"
	"crypto/md5" //#nosec G501 -- md5 derives cache keys, not a security boundary
	"encoding/hex"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/remote-media-staging/internal/metrics"
	"github.com/hfi/remote-media-staging/internal/storage"
)

// DefaultGroup is the cache group lookups are stored under
const DefaultGroup = "remote_media_cache"

// DefaultTTL is one week
const DefaultTTL = 604800 * time.Second

// Options configures a Cache. It is built once at startup and not mutated.
type Options struct {
	// Group namespaces every entry in the store
	Group string
	// TTL is the lifetime of a computed entry
	TTL time.Duration
	// Multisite scopes every key by SiteID
	Multisite bool
	SiteID    int64
}

// Cache memoizes lookup results in a CacheStore
type Cache struct {
	store  storage.CacheStore
	opts   Options
	logger zerolog.Logger
}

// New creates a cache over store
func New(store storage.CacheStore, opts Options, logger zerolog.Logger) *Cache {
	if opts.Group == "" {
		opts.Group = DefaultGroup
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Cache{
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Options returns the options the cache was built with
func (c *Cache) Options() Options {
	return c.opts
}

// Key derives a stable cache key from an identifying string
func Key(s string) string {
	sum := md5.Sum([]byte(s)) //#nosec G401
	return hex.EncodeToString(sum[:])
}

// slot returns the per-tenant key for key
func (c *Cache) slot(key string) string {
	if !c.opts.Multisite {
		return key
	}
	return key + "_" + strconv.FormatInt(c.opts.SiteID, 10)
}

// GetOrCompute returns the live entry stored under key, or runs compute and
// stores its result. Store failures fall back to compute; an error from
// compute is returned and nothing is cached.
func GetOrCompute[V any](ctx context.Context, c *Cache, key string, compute func(context.Context) (V, error)) (V, error) {
	slot := c.slot(key)

	raw, hit, err := c.store.Get(ctx, c.opts.Group, slot)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(metrics.CacheError)
		c.logger.Warn().Err(err).Str("key", slot).Msg("cache read failed, computing directly")
	case hit:
		v, decodeErr := decode[V](raw)
		if decodeErr == nil {
			metrics.RecordCacheLookup(metrics.CacheHit)
			return v, nil
		}
		metrics.RecordCacheLookup(metrics.CacheError)
		c.logger.Warn().Err(decodeErr).Str("key", slot).Msg("discarding undecodable cache entry")
	default:
		metrics.RecordCacheLookup(metrics.CacheMiss)
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}

	encoded, err := encode(v)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", slot).Msg("cache encode failed")
		return v, nil
	}
	if err := c.store.Set(ctx, c.opts.Group, slot, encoded, c.opts.TTL); err != nil {
		c.logger.Warn().Err(err).Str("key", slot).Msg("cache write failed")
	}

	return v, nil
}
