package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
)

type preferenceRepository struct {
	*BaseRepository
}

func NewPreferenceRepository(base *BaseRepository) repository.PreferenceRepository {
	return &preferenceRepository{BaseRepository: base}
}

func (r *preferenceRepository) Get(ctx context.Context, userID uuid.UUID, t model.NotificationType) (*model.NotificationPreference, error) {
	query := `
		SELECT user_id, type, email_enabled, push_enabled, in_app_enabled,
			created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1 AND type = $2
	`
	var pref model.NotificationPreference
	if err := r.db.GetContext(ctx, &pref, query, userID, t); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return &pref, nil
}

func (r *preferenceRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationPreference, error) {
	query := `
		SELECT user_id, type, email_enabled, push_enabled, in_app_enabled,
			created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1
		ORDER BY type
	`
	var prefs []*model.NotificationPreference
	if err := r.db.SelectContext(ctx, &prefs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (
			user_id, type, email_enabled, push_enabled, in_app_enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (user_id, type) DO UPDATE SET
			email_enabled = EXCLUDED.email_enabled,
			push_enabled = EXCLUDED.push_enabled,
			in_app_enabled = EXCLUDED.in_app_enabled,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query,
		pref.UserID, pref.Type, pref.EmailEnabled, pref.PushEnabled, pref.InAppEnabled,
	); err != nil {
		return fmt.Errorf("failed to upsert preference: %w", err)
	}
	return nil
}

func (r *preferenceRepository) GetSettings(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error) {
	query := `
		SELECT user_id, enabled, quiet_hours_enabled, quiet_hours_start,
			quiet_hours_end, timezone, updated_at
		FROM notification_settings
		WHERE user_id = $1
	`
	var settings model.NotificationSettings
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

func (r *preferenceRepository) UpsertSettings(ctx context.Context, settings *model.NotificationSettings) error {
	query := `
		INSERT INTO notification_settings (
			user_id, enabled, quiet_hours_enabled, quiet_hours_start,
			quiet_hours_end, timezone, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query,
		settings.UserID, settings.Enabled, settings.QuietHoursEnabled,
		settings.QuietHoursStart, settings.QuietHoursEnd, settings.Timezone,
	); err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}
