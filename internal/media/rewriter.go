// Package media rewrites media URLs so that assets inherited from the remote
// environment are served from the remote origin, while attachments uploaded
// locally keep their local URL.
package media

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hfi/remote-media-staging/internal/metrics"
)

// Resolver maps a media URL to an attachment id
type Resolver interface {
	ResolveID(ctx context.Context, rawURL string) (int64, bool)
}

// Classifier reports and records attachment locality
type Classifier interface {
	IsLocal(ctx context.Context, id int64, ok bool) bool
	MarkLocal(ctx context.Context, id int64) error
}

// Rewriter decides per URL whether to serve it locally or from the origin
type Rewriter struct {
	origin     *Origin
	resolver   Resolver
	classifier Classifier
	logger     zerolog.Logger
}

// New creates a rewriter. A nil origin yields a disabled rewriter that
// passes every URL through unchanged.
func New(origin *Origin, resolver Resolver, classifier Classifier, logger zerolog.Logger) *Rewriter {
	return &Rewriter{
		origin:     origin,
		resolver:   resolver,
		classifier: classifier,
		logger:     logger.With().Str("component", "rewriter").Logger(),
	}
}

// Enabled reports whether the rewriter has a valid origin
func (r *Rewriter) Enabled() bool {
	return r.origin != nil
}

// Rewrite returns rawURL with its scheme and host replaced by the origin's,
// unless it belongs to a local attachment or cannot be parsed.
func (r *Rewriter) Rewrite(ctx context.Context, rawURL string) string {
	if !r.Enabled() {
		metrics.RecordRewrite(metrics.OutcomeDisabled)
		return rawURL
	}

	if r.isLocal(ctx, rawURL) {
		metrics.RecordRewrite(metrics.OutcomeLocal)
		return rawURL
	}

	return r.replaceOrigin(rawURL)
}

func (r *Rewriter) isLocal(ctx context.Context, rawURL string) bool {
	id, ok := r.resolver.ResolveID(ctx, rawURL)
	return r.classifier.IsLocal(ctx, id, ok)
}

// replaceOrigin swaps scheme and host. Path, query and fragment are copied
// byte for byte from rawURL.
func (r *Rewriter) replaceOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Opaque != "" {
		metrics.RecordRewrite(metrics.OutcomeMalformed)
		r.logger.Debug().Err(err).Str("url", rawURL).Msg("leaving unparseable url unchanged")
		return rawURL
	}

	rest := afterAuthority(rawURL, u.Scheme)
	if rest != "" && !strings.ContainsRune("/?#", rune(rest[0])) {
		rest = "/" + rest
	}

	metrics.RecordRewrite(metrics.OutcomeRemote)
	return r.origin.String() + rest
}

// afterAuthority returns the raw text of rawURL following its scheme and
// authority. scheme is the parsed scheme, which has the same length as the
// one written in rawURL.
func afterAuthority(rawURL, scheme string) string {
	rest := rawURL
	if scheme != "" {
		rest = rest[len(scheme)+1:]
	}
	if !strings.HasPrefix(rest, "//") {
		return rest
	}
	rest = rest[2:]
	i := strings.IndexAny(rest, "/?#")
	if i < 0 {
		return ""
	}
	return rest[i:]
}

// AttachmentCreated marks a newly created attachment as local
func (r *Rewriter) AttachmentCreated(ctx context.Context, id int64) {
	if err := r.classifier.MarkLocal(ctx, id); err != nil {
		r.logger.Error().Err(err).Int64("attachment_id", id).Msg("failed to mark attachment local")
		return
	}
	r.logger.Debug().Int64("attachment_id", id).Msg("attachment marked local")
}
