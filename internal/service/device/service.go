package device

import (
	"context"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/logger"
	"github.com/sitebeam/notify-service/pkg/security"
)

type Service interface {
	Register(ctx context.Context, userID uuid.UUID, platform model.DevicePlatform, token, deviceName string) (*model.DeviceRegistration, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error)
	Disable(ctx context.Context, userID, deviceID uuid.UUID) error
}

type service struct {
	repo      repository.DeviceRepository
	encryptor security.Encryptor
	logger    *logger.Logger
}

func NewService(repo repository.DeviceRepository, encryptor security.Encryptor, log *logger.Logger) Service {
	return &service{repo: repo, encryptor: encryptor, logger: log}
}

// Register stores the subscription token encrypted; the plaintext only
// exists again inside the push worker at send time.
func (s *service) Register(ctx context.Context, userID uuid.UUID, platform model.DevicePlatform, token, deviceName string) (*model.DeviceRegistration, error) {
	if !platform.Valid() {
		return nil, apperrors.BadRequest("unknown device platform", nil)
	}
	if token == "" {
		return nil, apperrors.BadRequest("device token is required", nil)
	}

	encrypted, err := security.EncryptString(s.encryptor, token)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	device := &model.DeviceRegistration{
		ID:         uuid.New(),
		UserID:     userID,
		Platform:   platform,
		Token:      encrypted,
		TokenHash:  security.Fingerprint(token),
		DeviceName: deviceName,
		Enabled:    true,
	}
	// The upsert keys on the plaintext fingerprint; on conflict the repo
	// overwrites device.ID with the existing row's id.
	if err := s.repo.Register(ctx, device); err != nil {
		return nil, err
	}

	s.logger.Info("device registered",
		"user_id", userID.String(), "platform", string(platform))
	return device, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]*model.DeviceRegistration, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *service) Disable(ctx context.Context, userID, deviceID uuid.UUID) error {
	devices, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if d.ID == deviceID {
			return s.repo.Disable(ctx, deviceID)
		}
	}
	return apperrors.NotFound("device", nil)
}
