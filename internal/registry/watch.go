package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nhle/todoshare/internal/realtime"
)

// watch pumps one subscription into apply. The subscription is closed on
// return. A cancelled ctx returns nil; a feed that ends on its own returns
// ErrFeedClosed.
func watch(ctx context.Context, remote Remote, filter realtime.Filter, apply func(realtime.Event) bool, logger *slog.Logger) error {
	sub, err := remote.Subscribe(ctx, filter)
	if err != nil {
		logger.Error("Subscribing failed", "collection", filter.Collection, "list_id", filter.ListID, "error", err)
		return fmt.Errorf("subscribing to %s: %w", filter.Collection, err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warn("Change feed closed", "collection", filter.Collection, "list_id", filter.ListID)
				return ErrFeedClosed
			}
			apply(e)
		}
	}
}
