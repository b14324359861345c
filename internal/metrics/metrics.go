package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rewrite outcomes
const (
	OutcomeRemote    = "remote"
	OutcomeLocal     = "local"
	OutcomeDisabled  = "disabled"
	OutcomeMalformed = "malformed"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// RewritesTotal counts URL rewrite decisions by outcome
	RewritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_media_rewrites_total",
		Help: "Total number of media URLs processed, by outcome",
	}, []string{"outcome"})

	// SrcsetsTotal counts processed responsive image sets
	SrcsetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remote_media_srcsets_total",
		Help: "Total number of responsive image source sets processed",
	})

	// CacheLookupsTotal counts lookup cache accesses
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_media_cache_lookups_total",
		Help: "Total number of lookup cache accesses, by result",
	}, []string{"result"})

	// AttachmentsMarkedLocal counts attachments flagged as local uploads
	AttachmentsMarkedLocal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remote_media_attachments_marked_local_total",
		Help: "Total number of attachments marked as local uploads",
	})

	// CacheStoreSize tracks the size of the cache store
	CacheStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "remote_media_cache_store_size",
		Help: "Current number of entries in the lookup cache store",
	})

	// ResolveDuration tracks attachment resolution latency
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "remote_media_resolve_duration_seconds",
		Help:    "Attachment resolution duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordRewrite records a rewrite outcome
func RecordRewrite(outcome string) {
	RewritesTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a lookup cache access
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordResolveDuration records attachment resolution duration
func RecordResolveDuration(seconds float64) {
	ResolveDuration.Observe(seconds)
}
