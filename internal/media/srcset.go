package media

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/hfi/remote-media-staging/internal/metrics"
)

// sizeSuffix matches the -<width>x<height> suffix of resized image variants
var sizeSuffix = regexp.MustCompile(`-\d+[Xx]\d+`)

// Source is one candidate of a responsive image source set
type Source struct {
	URL        string `json:"url"`
	Descriptor string `json:"descriptor"`
	Value      int    `json:"value"`
}

// StripSizeSuffix removes every -WxH suffix from the path of rawURL,
// leaving the rest of the text as written
func StripSizeSuffix(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Opaque != "" {
		return sizeSuffix.ReplaceAllString(rawURL, "")
	}

	rest := afterAuthority(rawURL, u.Scheme)
	head := rawURL[:len(rawURL)-len(rest)]
	path, tail := rest, ""
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		path, tail = rest[:i], rest[i:]
	}
	return head + sizeSuffix.ReplaceAllString(path, "") + tail
}

// RewriteSet rewrites every source of a responsive image set. Locality is
// decided once, from the first source with its size suffix stripped, since
// all sources are variants of one attachment.
func (r *Rewriter) RewriteSet(ctx context.Context, sources []Source) []Source {
	if len(sources) == 0 {
		return sources
	}
	if !r.Enabled() {
		recordEach(metrics.OutcomeDisabled, len(sources))
		return sources
	}
	metrics.SrcsetsTotal.Inc()

	if r.isLocal(ctx, StripSizeSuffix(sources[0].URL)) {
		recordEach(metrics.OutcomeLocal, len(sources))
		return sources
	}

	// Rewrite records one outcome per source
	out := make([]Source, len(sources))
	for i, src := range sources {
		src.URL = r.Rewrite(ctx, src.URL)
		out[i] = src
	}
	return out
}

func recordEach(outcome string, n int) {
	for i := 0; i < n; i++ {
		metrics.RecordRewrite(outcome)
	}
}
