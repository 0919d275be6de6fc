package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
)

// priorityRank orders text priorities in claim queries.
const priorityRank = `
	CASE priority
		WHEN 'critical' THEN 3
		WHEN 'high' THEN 2
		WHEN 'medium' THEN 1
		ELSE 0
	END
`

func taskTable(channel model.Channel) (string, error) {
	switch channel {
	case model.ChannelEmail:
		return "email_delivery_tasks", nil
	case model.ChannelPush:
		return "push_delivery_tasks", nil
	default:
		return "", fmt.Errorf("no delivery queue for channel: %s", channel)
	}
}

type deliveryRepository struct {
	*BaseRepository
}

func NewDeliveryRepository(base *BaseRepository) repository.DeliveryRepository {
	return &deliveryRepository{BaseRepository: base}
}

// Claim selects runnable tasks with FOR UPDATE SKIP LOCKED and flips them to
// processing inside one transaction, so two concurrent worker invocations
// never claim the same row. Stale processing rows (a prior invocation that
// died mid-send) become runnable again after staleAfter.
func (r *deliveryRepository) Claim(ctx context.Context, channel model.Channel, limit int, staleAfter time.Duration) ([]*model.DeliveryTask, error) {
	table, err := taskTable(channel)
	if err != nil {
		return nil, err
	}

	var tasks []*model.DeliveryTask
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		selectQuery := fmt.Sprintf(`
			SELECT id, notification_id, user_id, channel, priority, recipient,
				device_id, payload, status, scheduled_for, retry_count,
				last_error, permanent_failure, message_id, sent_at,
				created_at, updated_at
			FROM %s
			WHERE (status = 'pending' AND scheduled_for <= NOW())
			OR (status = 'processing' AND updated_at < $1)
			ORDER BY `+priorityRank+` DESC, scheduled_for ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		`, table)

		if err := tx.SelectContext(ctx, &tasks, selectQuery, time.Now().Add(-staleAfter), limit); err != nil {
			return fmt.Errorf("failed to select runnable tasks: %w", err)
		}
		if len(tasks) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(tasks))
		for i, t := range tasks {
			ids[i] = t.ID
			t.Status = model.DeliveryStatusProcessing
		}

		updateQuery, args, err := sqlx.In(
			fmt.Sprintf(`UPDATE %s SET status = 'processing', updated_at = NOW() WHERE id IN (?)`, table),
			ids,
		)
		if err != nil {
			return fmt.Errorf("failed to build claim update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(updateQuery), args...); err != nil {
			return fmt.Errorf("failed to claim tasks: %w", err)
		}
		return nil
	})
	if err := r.track("delivery_claim", err); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *deliveryRepository) MarkSent(ctx context.Context, channel model.Channel, id uuid.UUID, messageID string) error {
	table, err := taskTable(channel)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'sent', message_id = $2, sent_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, table)
	_, execErr := r.db.ExecContext(ctx, query, id, messageID)
	if err := r.track("delivery_mark_sent", execErr); err != nil {
		return fmt.Errorf("failed to mark task sent: %w", err)
	}
	return nil
}

func (r *deliveryRepository) Reschedule(ctx context.Context, channel model.Channel, id uuid.UUID, retryCount int, lastError string, nextAt time.Time) error {
	table, err := taskTable(channel)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'pending', retry_count = $2, last_error = $3,
			scheduled_for = $4, updated_at = NOW()
		WHERE id = $1
	`, table)
	_, execErr := r.db.ExecContext(ctx, query, id, retryCount, lastError, nextAt)
	if err := r.track("delivery_reschedule", execErr); err != nil {
		return fmt.Errorf("failed to reschedule task: %w", err)
	}
	return nil
}

func (r *deliveryRepository) MarkFailed(ctx context.Context, channel model.Channel, id uuid.UUID, retryCount int, lastError string, permanent bool) error {
	table, err := taskTable(channel)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'failed', retry_count = $2, last_error = $3,
			permanent_failure = $4, updated_at = NOW()
		WHERE id = $1
	`, table)
	_, execErr := r.db.ExecContext(ctx, query, id, retryCount, lastError, permanent)
	if err := r.track("delivery_mark_failed", execErr); err != nil {
		return fmt.Errorf("failed to mark task failed: %w", err)
	}
	return nil
}

// RetryFailed re-queues terminally failed tasks whose attempt count is within
// the operator-supplied allowance. Permanent failures (dead endpoints,
// rejected addresses) never come back. Operator sweep, not part of the
// normal retry loop.
func (r *deliveryRepository) RetryFailed(ctx context.Context, channel model.Channel, maxRetries int) (int64, error) {
	table, err := taskTable(channel)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'pending', scheduled_for = NOW(), updated_at = NOW()
		WHERE status = 'failed' AND retry_count <= $1 AND NOT permanent_failure
	`, table)
	result, execErr := r.db.ExecContext(ctx, query, maxRetries)
	if err := r.track("delivery_retry_failed", execErr); err != nil {
		return 0, fmt.Errorf("failed to retry failed tasks: %w", err)
	}
	return result.RowsAffected()
}

func (r *deliveryRepository) PendingCount(ctx context.Context, channel model.Channel) (int, error) {
	table, err := taskTable(channel)
	if err != nil {
		return 0, err
	}
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE status = 'pending'`, table)
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count pending tasks: %w", err)
	}
	return count, nil
}

func (r *deliveryRepository) PurgeTerminal(ctx context.Context, channel model.Channel, before time.Time) (int64, error) {
	table, err := taskTable(channel)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE status IN ('sent', 'failed') AND updated_at < $1
	`, table)
	result, execErr := r.db.ExecContext(ctx, query, before)
	if err := r.track("delivery_purge", execErr); err != nil {
		return 0, fmt.Errorf("failed to purge tasks: %w", err)
	}
	return result.RowsAffected()
}
