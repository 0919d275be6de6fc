package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/model"
)

type NotificationRepository interface {
	// CreateWithTasks writes the notification and its delivery tasks in a
	// single transaction. A notification must never exist without the tasks
	// that were resolved for it, and vice versa.
	CreateWithTasks(ctx context.Context, n *model.Notification, tasks []*model.DeliveryTask) error
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	PurgeOld(ctx context.Context, readBefore, unreadBefore time.Time) (int64, error)
}

type DeliveryRepository interface {
	// Claim atomically selects up to limit runnable tasks for the channel and
	// transitions them to processing. Runnable means pending with
	// scheduled_for reached, or processing older than staleAfter (an
	// abandoned claim from a crashed worker).
	Claim(ctx context.Context, channel model.Channel, limit int, staleAfter time.Duration) ([]*model.DeliveryTask, error)
	MarkSent(ctx context.Context, channel model.Channel, id uuid.UUID, messageID string) error
	Reschedule(ctx context.Context, channel model.Channel, id uuid.UUID, retryCount int, lastError string, nextAt time.Time) error
	// MarkFailed transitions a task to terminal failed. permanent records
	// that the destination itself is bad, which keeps the task out of
	// RetryFailed sweeps.
	MarkFailed(ctx context.Context, channel model.Channel, id uuid.UUID, retryCount int, lastError string, permanent bool) error
	// RetryFailed re-queues non-permanent failed tasks whose attempt count
	// is within maxRetries. The workers write attempt counts one past their
	// cap on exhaustion, so a sweep must pass cap+1 or more to reach them.
	RetryFailed(ctx context.Context, channel model.Channel, maxRetries int) (int64, error)
	PendingCount(ctx context.Context, channel model.Channel) (int, error)
	PurgeTerminal(ctx context.Context, channel model.Channel, before time.Time) (int64, error)
}

type PreferenceRepository interface {
	// Get returns nil (no error) when the user has no row for the type;
	// absence means default-allow.
	Get(ctx context.Context, userID uuid.UUID, t model.NotificationType) (*model.NotificationPreference, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationPreference, error)
	Upsert(ctx context.Context, pref *model.NotificationPreference) error
	// GetSettings returns nil when the user never saved settings; defaults
	// apply (notifications on, no quiet hours).
	GetSettings(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error)
	UpsertSettings(ctx context.Context, settings *model.NotificationSettings) error
}

// UserDirectory resolves a recipient to their email destination. The user
// roster is synced in from the main application; this service only reads it.
type UserDirectory interface {
	Email(ctx context.Context, userID uuid.UUID) (address string, name string, err error)
}

type DeviceRepository interface {
	Register(ctx context.Context, device *model.DeviceRegistration) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error)
	ListEnabledForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error)
	Disable(ctx context.Context, id uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}
