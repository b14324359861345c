package attachment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hfi/remote-media-staging/internal/metrics"
)

// LocalMetaKey is the metadata key flagging an attachment as a local upload
const LocalMetaKey = "is_local"

// Classifier decides whether an attachment was uploaded locally after the
// last sync. Reads go straight to the store.
type Classifier struct {
	store  Store
	logger zerolog.Logger
}

// NewClassifier creates a classifier over store
func NewClassifier(store Store, logger zerolog.Logger) *Classifier {
	return &Classifier{
		store:  store,
		logger: logger.With().Str("component", "classifier").Logger(),
	}
}

// IsLocal reports whether attachment id carries a truthy local flag.
// An absent id, a missing flag or a read error all mean remote.
func (c *Classifier) IsLocal(ctx context.Context, id int64, ok bool) bool {
	if !ok {
		return false
	}

	value, found, err := c.store.GetMeta(ctx, id, LocalMetaKey)
	if err != nil {
		c.logger.Error().Err(err).Int64("attachment_id", id).Msg("locality lookup failed")
		return false
	}
	return found && truthy(value)
}

// MarkLocal flags attachment id as a local upload. It is called for every
// attachment created in this environment, including ones that arrived by
// other means than an upload.
func (c *Classifier) MarkLocal(ctx context.Context, id int64) error {
	if err := c.store.SetMeta(ctx, id, LocalMetaKey, "1"); err != nil {
		return fmt.Errorf("mark attachment %d local: %w", id, err)
	}
	metrics.AttachmentsMarkedLocal.Inc()
	return nil
}

func truthy(v string) bool {
	switch v {
	case "", "0", "false":
		return false
	default:
		return true
	}
}
