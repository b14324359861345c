// Package storage provides the key/value backends used by the lookup cache.
package storage

import (
	"context"
	"time"
)

// Entry is a cached value with its expiry
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the entry is past its expiry at now
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// CacheStore defines the interface for a TTL-bounded key/value store.
// Keys are namespaced by a cache group.
type CacheStore interface {
	// Get retrieves the value stored under key in group
	Get(ctx context.Context, group, key string) ([]byte, bool, error)

	// Set stores value under key in group for ttl
	Set(ctx context.Context, group, key string, value []byte, ttl time.Duration) error

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error

	// Size returns the number of stored entries
	Size() int

	// Close releases any resources
	Close() error
}
