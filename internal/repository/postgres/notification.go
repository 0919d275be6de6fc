package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
)

type notificationRepository struct {
	*BaseRepository
}

func NewNotificationRepository(base *BaseRepository) repository.NotificationRepository {
	return &notificationRepository{BaseRepository: base}
}

func (r *notificationRepository) CreateWithTasks(ctx context.Context, n *model.Notification, tasks []*model.DeliveryTask) error {
	if n == nil {
		return fmt.Errorf("notification cannot be nil")
	}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO notifications (
				id, user_id, type, priority, title, message, payload,
				entity_type, entity_id, is_read, created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $11)
		`
		if _, err := tx.ExecContext(ctx, query,
			n.ID, n.UserID, n.Type, n.Priority, n.Title, n.Message, n.Payload,
			n.EntityType, n.EntityID, n.CreatedBy, n.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}

		for _, task := range tasks {
			table, err := taskTable(task.Channel)
			if err != nil {
				return err
			}
			taskQuery := fmt.Sprintf(`
				INSERT INTO %s (
					id, notification_id, user_id, channel, priority, recipient,
					device_id, payload, status, scheduled_for, retry_count,
					created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $11)
			`, table)
			if _, err := tx.ExecContext(ctx, taskQuery,
				task.ID, task.NotificationID, task.UserID, task.Channel,
				task.Priority, task.Recipient, task.DeviceID, task.Payload,
				model.DeliveryStatusPending, task.ScheduledFor, task.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to enqueue %s task: %w", task.Channel, err)
			}
		}

		return nil
	})
	return r.track("notification_create", err)
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `
		SELECT id, user_id, type, priority, title, message, payload,
			entity_type, entity_id, is_read, read_at, created_by, created_at
		FROM notifications
		WHERE id = $1
	`
	var n model.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error) {
	filter := ""
	if unreadOnly {
		filter = " AND is_read = false"
	}

	countQuery := `SELECT COUNT(*) FROM notifications WHERE user_id = $1` + filter
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, user_id, type, priority, title, message, payload,
			entity_type, entity_id, is_read, read_at, created_by, created_at
		FROM notifications
		WHERE user_id = $1` + filter + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead sets is_read once; a second call leaves read_at at the first
// call's time and reports false.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $3
		WHERE id = $1 AND user_id = $2 AND is_read = false
	`
	result, err := r.db.ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = $2
		WHERE user_id = $1 AND is_read = false
	`
	result, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) PurgeOld(ctx context.Context, readBefore, unreadBefore time.Time) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE (is_read = true AND read_at < $1)
		OR (is_read = false AND created_at < $2)
	`
	result, err := r.db.ExecContext(ctx, query, readBefore, unreadBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return result.RowsAffected()
}
