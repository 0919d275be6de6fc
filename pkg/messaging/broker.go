package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Broker defines the interface for the realtime fan-out transport. Publish
// is fire-and-forget from the caller's perspective: the notification store
// stays the durable source of truth, a missed publish is recovered by the
// client re-fetching on reconnect.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// UserChannel is the per-user pub/sub topic notifications are fanned out on.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:user:%s", userID)
}
