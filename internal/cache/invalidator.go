package cache

import (
	"context"
	"fmt"

	"ms-booking/internal/logger"

	"github.com/go-redis/redis/v8"
)

// Invalidator drops cached dashboard views when booking state changes. Views are
// cached per event under "views:event:<id>:*" by the read side; we only delete.
type Invalidator struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewInvalidator(client *redis.Client, log *logger.Logger) *Invalidator {
	return &Invalidator{Client: client, Logger: log}
}

// InvalidateEventViews deletes every cached view key for the event.
func (i *Invalidator) InvalidateEventViews(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}

	pattern := fmt.Sprintf("views:event:%s:*", eventID)
	var deleted int64

	iter := i.Client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := i.Client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return fmt.Errorf("failed to delete cached view %s: %w", iter.Val(), err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached views for event %s: %w", eventID, err)
	}

	if deleted > 0 {
		i.Logger.Info("CACHE", fmt.Sprintf("Invalidated %d cached views for event %s", deleted, eventID))
	}
	return nil
}
