package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/logger"
)

const (
	cacheTTL     = time.Minute
	cacheCleanup = 5 * time.Minute
)

type Service interface {
	// Allowed is the delivery gate: (user, type, channel, now) -> allow.
	// Pure read; safe to call redundantly.
	Allowed(ctx context.Context, userID uuid.UUID, t model.NotificationType, channel model.Channel, now time.Time) (bool, error)
	Upsert(ctx context.Context, pref *model.NotificationPreference) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationPreference, error)
	GetSettings(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error)
	UpsertSettings(ctx context.Context, settings *model.NotificationSettings) error
}

type service struct {
	repo   repository.PreferenceRepository
	cache  *gocache.Cache
	logger *logger.Logger
}

func NewService(repo repository.PreferenceRepository, log *logger.Logger) Service {
	return &service{
		repo:   repo,
		cache:  gocache.New(cacheTTL, cacheCleanup),
		logger: log,
	}
}

func (s *service) Allowed(ctx context.Context, userID uuid.UUID, t model.NotificationType, channel model.Channel, now time.Time) (bool, error) {
	// System notifications bypass every gate.
	if t == model.NotificationTypeSystem {
		return true, nil
	}

	settings, err := s.settings(ctx, userID)
	if err != nil {
		return false, err
	}
	if settings != nil && !settings.Enabled {
		return false, nil
	}

	pref, err := s.preference(ctx, userID, t)
	if err != nil {
		return false, err
	}
	if pref != nil && !pref.ChannelEnabled(channel) {
		return false, nil
	}

	// Quiet hours suppress interruption channels only; the in-app record is
	// still written for later viewing.
	if settings != nil && (channel == model.ChannelEmail || channel == model.ChannelPush) {
		inQuiet, err := settings.InQuietHours(now)
		if err != nil {
			// Bad timezone or window data fails open; a misconfigured window
			// should not silence the user entirely.
			s.logger.Warn("invalid quiet hours configuration",
				"user_id", userID.String(), "error", err.Error())
			return true, nil
		}
		if inQuiet {
			return false, nil
		}
	}

	return true, nil
}

func (s *service) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	if !pref.Type.Valid() {
		return apperrors.BadRequest(fmt.Sprintf("unknown notification type: %s", pref.Type), nil)
	}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return err
	}
	s.cache.Delete(prefKey(pref.UserID, pref.Type))
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.NotificationPreference, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *service) GetSettings(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error) {
	return s.settings(ctx, userID)
}

func (s *service) UpsertSettings(ctx context.Context, settings *model.NotificationSettings) error {
	if settings.QuietHoursEnabled {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return apperrors.BadRequest(fmt.Sprintf("invalid timezone: %s", settings.Timezone), err)
		}
	}
	if err := s.repo.UpsertSettings(ctx, settings); err != nil {
		return err
	}
	s.cache.Delete(settingsKey(settings.UserID))
	return nil
}

func (s *service) settings(ctx context.Context, userID uuid.UUID) (*model.NotificationSettings, error) {
	key := settingsKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.NotificationSettings), nil
	}
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, settings, cacheTTL)
	return settings, nil
}

func (s *service) preference(ctx context.Context, userID uuid.UUID, t model.NotificationType) (*model.NotificationPreference, error) {
	key := prefKey(userID, t)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.NotificationPreference), nil
	}
	pref, err := s.repo.Get(ctx, userID, t)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, pref, cacheTTL)
	return pref, nil
}

func settingsKey(userID uuid.UUID) string {
	return "settings:" + userID.String()
}

func prefKey(userID uuid.UUID, t model.NotificationType) string {
	return "pref:" + userID.String() + ":" + string(t)
}
