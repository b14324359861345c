package attachment

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/remote-media-staging/internal/cache"
	"github.com/hfi/remote-media-staging/internal/metrics"
)

// Resolver maps media URLs to attachment ids.
//
// Matching is a substring match of the URL path against stored locators so
// that size-suffixed variants still resolve. Locators sharing a common
// substring can produce false positives; the lowest matching id wins.
type Resolver struct {
	store  Store
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewResolver creates a resolver backed by store, memoized through c
func NewResolver(store Store, c *cache.Cache, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		cache:  c,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// ResolveID returns the attachment id for rawURL. URLs without a parseable
// path resolve to nothing.
func (r *Resolver) ResolveID(ctx context.Context, rawURL string) (int64, bool) {
	start := time.Now()
	defer func() {
		metrics.RecordResolveDuration(time.Since(start).Seconds())
	}()

	path, ok := rawPath(rawURL)
	if !ok {
		return 0, false
	}

	ids, err := cache.GetOrCompute(ctx, r.cache, cache.Key(path), func(ctx context.Context) ([]int64, error) {
		return r.store.FindByLocator(ctx, path)
	})
	if err != nil {
		r.logger.Error().Err(err).Str("path", path).Msg("attachment lookup failed")
		return 0, false
	}

	if len(ids) == 0 || ids[0] == 0 {
		return 0, false
	}
	return ids[0], true
}

// rawPath returns the path of rawURL as written. Stored locators keep their
// percent-encoding, so the path must not be decoded before matching.
func rawPath(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Opaque != "" {
		return "", false
	}

	rest := rawURL
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	if u.Scheme != "" {
		rest = rest[len(u.Scheme)+1:]
	}
	if strings.HasPrefix(rest, "//") {
		i := strings.IndexByte(rest[2:], '/')
		if i < 0 {
			return "", false
		}
		rest = rest[2+i:]
	}
	return rest, rest != ""
}
