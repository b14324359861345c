// Package attachment resolves media URLs to attachment records and tracks
// which attachments were uploaded in the local environment.
package attachment

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an attachment does not exist
var ErrNotFound = errors.New("attachment not found")

// Attachment is a stored media record
type Attachment struct {
	ID   int64
	GUID string
}

// Store defines the interface to the content platform's attachment records
// and their metadata
type Store interface {
	// FindByLocator returns the ids of attachments whose locator contains
	// substr, in ascending id order
	FindByLocator(ctx context.Context, substr string) ([]int64, error)

	// GetMeta returns a metadata value for an attachment
	GetMeta(ctx context.Context, id int64, key string) (string, bool, error)

	// SetMeta writes a metadata value for an attachment
	SetMeta(ctx context.Context, id int64, key, value string) error

	// Create inserts an attachment and returns its id
	Create(ctx context.Context, guid string) (int64, error)

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
}
