package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/pkg/logger"
)

// fakeRepo mimics the store's idempotent MarkRead contract.
type fakeRepo struct {
	notifications map[uuid.UUID]*model.Notification

	lastLimit  int
	lastOffset int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{notifications: make(map[uuid.UUID]*model.Notification)}
}

func (f *fakeRepo) CreateWithTasks(_ context.Context, n *model.Notification, _ []*model.DeliveryTask) error {
	f.notifications[n.ID] = n
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	return f.notifications[id], nil
}

func (f *fakeRepo) ListForUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error) {
	f.lastLimit = limit
	f.lastOffset = offset

	var out []*model.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (f *fakeRepo) MarkRead(_ context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	n, ok := f.notifications[id]
	if !ok || n.UserID != userID || n.IsRead {
		return false, nil
	}
	n.IsRead = true
	n.ReadAt = &at
	return true, nil
}

func (f *fakeRepo) MarkAllRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) PurgeOld(_ context.Context, readBefore, unreadBefore time.Time) (int64, error) {
	var count int64
	for id, n := range f.notifications {
		read := n.IsRead && n.ReadAt != nil && n.ReadAt.Before(readBefore)
		unread := !n.IsRead && n.CreatedAt.Before(unreadBefore)
		if read || unread {
			delete(f.notifications, id)
			count++
		}
	}
	return count, nil
}

func seed(repo *fakeRepo, userID uuid.UUID) *model.Notification {
	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      model.NotificationTypeTaskAssigned,
		Priority:  model.PriorityMedium,
		Title:     "Task assigned to you",
		CreatedAt: time.Now(),
	}
	repo.notifications[n.ID] = n
	return n
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	n := seed(repo, userID)
	svc := NewService(repo, logger.Nop())

	first, err := svc.MarkRead(context.Background(), n.ID, userID)
	require.NoError(t, err)
	require.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)
	firstReadAt := *first.ReadAt

	time.Sleep(10 * time.Millisecond)

	second, err := svc.MarkRead(context.Background(), n.ID, userID)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	require.NotNil(t, second.ReadAt)
	assert.Equal(t, firstReadAt, *second.ReadAt)
}

func TestMarkReadRejectsOtherUsers(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	n := seed(repo, owner)
	svc := NewService(repo, logger.Nop())

	_, err := svc.MarkRead(context.Background(), n.ID, uuid.New())
	assert.Error(t, err)
	assert.False(t, repo.notifications[n.ID].IsRead)
}

func TestGetEnforcesOwnership(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	n := seed(repo, owner)
	svc := NewService(repo, logger.Nop())

	got, err := svc.Get(context.Background(), n.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	_, err = svc.Get(context.Background(), n.ID, uuid.New())
	assert.Error(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), owner)
	assert.Error(t, err)
}

func TestListForUserClampsPagination(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	seed(repo, userID)
	svc := NewService(repo, logger.Nop())

	_, _, err := svc.ListForUser(context.Background(), userID, false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)
	assert.Equal(t, 0, repo.lastOffset)

	_, _, err = svc.ListForUser(context.Background(), userID, false, 3, 500)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)
	assert.Equal(t, 40, repo.lastOffset)

	_, _, err = svc.ListForUser(context.Background(), userID, false, 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)
	assert.Equal(t, 50, repo.lastOffset)
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	seed(repo, userID)
	seed(repo, userID)
	seed(repo, uuid.New())
	svc := NewService(repo, logger.Nop())

	count, err := svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated, err := svc.MarkAllRead(context.Background(), userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	count, err = svc.UnreadCount(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPurgeUsesAgeThresholds(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	svc := NewService(repo, logger.Nop())

	old := seed(repo, userID)
	old.CreatedAt = time.Now().Add(-100 * 24 * time.Hour)

	readOld := seed(repo, userID)
	readAt := time.Now().Add(-40 * 24 * time.Hour)
	readOld.IsRead = true
	readOld.ReadAt = &readAt

	fresh := seed(repo, userID)

	purged, err := svc.Purge(context.Background(), 30*24*time.Hour, 90*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)

	assert.Contains(t, repo.notifications, fresh.ID)
	assert.NotContains(t, repo.notifications, old.ID)
	assert.NotContains(t, repo.notifications, readOld.ID)
}
