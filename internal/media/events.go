package media

import "context"

// URLFilter transforms a single attachment URL
type URLFilter func(ctx context.Context, rawURL string) string

// SrcsetFilter transforms a responsive image source set
type SrcsetFilter func(ctx context.Context, sources []Source) []Source

// CreatedHandler is notified of a newly created attachment
type CreatedHandler func(ctx context.Context, id int64)

// URLEvents is where the host platform accepts filters for requested
// attachment URLs
type URLEvents interface {
	OnAttachmentURL(f URLFilter)
	OnSrcset(f SrcsetFilter)
}

// CreatedEvents is where the host platform accepts attachment creation
// handlers
type CreatedEvents interface {
	OnAttachmentCreated(h CreatedHandler)
}

// Register attaches the rewriter to the host's events. A disabled rewriter
// registers nothing, so the host behaves as if it were not installed.
func (r *Rewriter) Register(urls URLEvents, created CreatedEvents) bool {
	if !r.Enabled() {
		r.logger.Warn().Msg("remote media origin not configured, rewriting disabled")
		return false
	}

	urls.OnAttachmentURL(r.Rewrite)
	urls.OnSrcset(r.RewriteSet)
	created.OnAttachmentCreated(r.AttachmentCreated)

	r.logger.Info().Str("origin", r.origin.String()).Msg("remote media rewriting enabled")
	return true
}
