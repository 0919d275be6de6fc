package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sitebeam/notify-service/internal/config"
	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/pkg/logger"
)

type fakeNotificationService struct {
	readMaxAge   time.Duration
	unreadMaxAge time.Duration
	purgeCalls   int
}

func (f *fakeNotificationService) Get(context.Context, uuid.UUID, uuid.UUID) (*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationService) ListForUser(context.Context, uuid.UUID, bool, int, int) ([]*model.Notification, int, error) {
	return nil, 0, nil
}

func (f *fakeNotificationService) MarkRead(context.Context, uuid.UUID, uuid.UUID) (*model.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationService) UnreadCount(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeNotificationService) Purge(_ context.Context, readMaxAge, unreadMaxAge time.Duration) (int64, error) {
	f.purgeCalls++
	f.readMaxAge = readMaxAge
	f.unreadMaxAge = unreadMaxAge
	return 3, nil
}

type purgeTrackingRepo struct {
	fakeDeliveryRepo
	channels []model.Channel
	before   time.Time
}

func (p *purgeTrackingRepo) PurgeTerminal(_ context.Context, channel model.Channel, before time.Time) (int64, error) {
	p.channels = append(p.channels, channel)
	p.before = before
	return 1, nil
}

func TestJanitorSweep(t *testing.T) {
	svc := &fakeNotificationService{}
	repo := &purgeTrackingRepo{}
	j := NewJanitor(svc, repo, config.JanitorConfig{
		ReadMaxAge:   10 * 24 * time.Hour,
		UnreadMaxAge: 60 * 24 * time.Hour,
		TaskMaxAge:   7 * 24 * time.Hour,
	}, logger.Nop())

	j.Sweep(context.Background())

	assert.Equal(t, 1, svc.purgeCalls)
	assert.Equal(t, 10*24*time.Hour, svc.readMaxAge)
	assert.Equal(t, 60*24*time.Hour, svc.unreadMaxAge)

	assert.Equal(t, []model.Channel{model.ChannelEmail, model.ChannelPush}, repo.channels)
	wantBefore := time.Now().Add(-7 * 24 * time.Hour)
	assert.WithinDuration(t, wantBefore, repo.before, 5*time.Second)
}

func TestJanitorConfigDefaults(t *testing.T) {
	j := NewJanitor(&fakeNotificationService{}, &purgeTrackingRepo{}, config.JanitorConfig{}, logger.Nop())

	assert.Equal(t, 24*time.Hour, j.config.Interval)
	assert.Equal(t, 30*24*time.Hour, j.config.ReadMaxAge)
	assert.Equal(t, 90*24*time.Hour, j.config.UnreadMaxAge)
	assert.Equal(t, 30*24*time.Hour, j.config.TaskMaxAge)
}
