// Package hooks is the host-side event surface: filter chains for requested
// media URLs and actions for created attachments, plus an HTTP API that lets
// an external CMS fire them.
package hooks

import (
	"context"
	"sync"

	"github.com/hfi/remote-media-staging/internal/media"
)

// Dispatcher holds registered filters and actions and runs them in
// registration order
type Dispatcher struct {
	mu            sync.RWMutex
	urlFilters    []media.URLFilter
	srcsetFilters []media.SrcsetFilter
	created       []media.CreatedHandler
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// OnAttachmentURL registers a URL filter
func (d *Dispatcher) OnAttachmentURL(f media.URLFilter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urlFilters = append(d.urlFilters, f)
}

// OnSrcset registers a source set filter
func (d *Dispatcher) OnSrcset(f media.SrcsetFilter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.srcsetFilters = append(d.srcsetFilters, f)
}

// OnAttachmentCreated registers a creation handler
func (d *Dispatcher) OnAttachmentCreated(h media.CreatedHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, h)
}

// ApplyAttachmentURL passes rawURL through every URL filter
func (d *Dispatcher) ApplyAttachmentURL(ctx context.Context, rawURL string) string {
	d.mu.RLock()
	filters := d.urlFilters
	d.mu.RUnlock()

	for _, f := range filters {
		rawURL = f(ctx, rawURL)
	}
	return rawURL
}

// ApplySrcset passes sources through every source set filter
func (d *Dispatcher) ApplySrcset(ctx context.Context, sources []media.Source) []media.Source {
	d.mu.RLock()
	filters := d.srcsetFilters
	d.mu.RUnlock()

	for _, f := range filters {
		sources = f(ctx, sources)
	}
	return sources
}

// FireAttachmentCreated notifies every creation handler
func (d *Dispatcher) FireAttachmentCreated(ctx context.Context, id int64) {
	d.mu.RLock()
	handlers := d.created
	d.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, id)
	}
}
