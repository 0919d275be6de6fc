package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
)

type deviceRepository struct {
	*BaseRepository
}

func NewDeviceRepository(base *BaseRepository) repository.DeviceRepository {
	return &deviceRepository{BaseRepository: base}
}

// Register upserts on (user_id, token_hash): re-registering an existing
// endpoint re-enables it instead of duplicating the row. The hash is the
// conflict key because the encrypted token column differs per write even for
// the same plaintext. On conflict the stored ciphertext is refreshed and the
// caller's struct picks up the existing row's id.
func (r *deviceRepository) Register(ctx context.Context, device *model.DeviceRegistration) error {
	query := `
		INSERT INTO device_registrations (
			id, user_id, platform, token, token_hash, device_name, enabled,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, true, NOW(), NOW())
		ON CONFLICT (user_id, token_hash) DO UPDATE SET
			platform = EXCLUDED.platform,
			token = EXCLUDED.token,
			device_name = EXCLUDED.device_name,
			enabled = true,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	row := r.db.QueryRowxContext(ctx, query,
		device.ID, device.UserID, device.Platform, device.Token, device.TokenHash,
		device.DeviceName,
	)
	if err := row.Scan(&device.ID, &device.CreatedAt, &device.UpdatedAt); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (r *deviceRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error) {
	return r.list(ctx, userID, false)
}

func (r *deviceRepository) ListEnabledForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error) {
	return r.list(ctx, userID, true)
}

func (r *deviceRepository) list(ctx context.Context, userID uuid.UUID, enabledOnly bool) ([]*model.DeviceRegistration, error) {
	filter := ""
	if enabledOnly {
		filter = " AND enabled = true"
	}
	query := `
		SELECT id, user_id, platform, token, token_hash, device_name, enabled,
			last_used_at, created_at, updated_at
		FROM device_registrations
		WHERE user_id = $1` + filter + `
		ORDER BY created_at
	`
	var devices []*model.DeviceRegistration
	if err := r.db.SelectContext(ctx, &devices, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Disable is idempotent; disabling an already-disabled device is a no-op.
func (r *deviceRepository) Disable(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE device_registrations
		SET enabled = false, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to disable device: %w", err)
	}
	return nil
}

func (r *deviceRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE device_registrations
		SET last_used_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to update device last used: %w", err)
	}
	return nil
}
