package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/logger"
)

// Service is the read/update side of the notification store: everything the
// client's bell menu needs, plus the janitor purge.
type Service interface {
	Get(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]*model.Notification, int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	Purge(ctx context.Context, readMaxAge, unreadMaxAge time.Duration) (int64, error)
}

type service struct {
	repo   repository.NotificationRepository
	logger *logger.Logger
}

func NewService(repo repository.NotificationRepository, log *logger.Logger) Service {
	return &service{repo: repo, logger: log}
}

func (s *service) Get(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || n.UserID != userID {
		return nil, apperrors.NotFound("notification", nil)
	}
	return n, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]*model.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.ListForUser(ctx, userID, unreadOnly, pageSize, (page-1)*pageSize)
}

// MarkRead transitions is_read exactly once. Marking an already-read
// notification is a no-op that returns the stored record, read_at still
// holding the first call's time.
func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) (*model.Notification, error) {
	updated, err := s.repo.MarkRead(ctx, id, userID, time.Now())
	if err != nil {
		return nil, err
	}

	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || n.UserID != userID {
		return nil, apperrors.NotFound("notification", nil)
	}

	if !updated {
		s.logger.Debug("notification already read", "id", id.String())
	}
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, time.Now())
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *service) Purge(ctx context.Context, readMaxAge, unreadMaxAge time.Duration) (int64, error) {
	now := time.Now()
	purged, err := s.repo.PurgeOld(ctx, now.Add(-readMaxAge), now.Add(-unreadMaxAge))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.logger.Info("purged notifications", "count", purged)
	}
	return purged, nil
}
