package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebeam/notify-service/internal/model"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/logger"
	"github.com/sitebeam/notify-service/pkg/metrics"
)

type fakeDeliveryRepo struct {
	claimable []*model.DeliveryTask

	sent        map[uuid.UUID]string
	failed      map[uuid.UUID]string
	permanent   map[uuid.UUID]bool
	rescheduled map[uuid.UUID]time.Time
	retryCounts map[uuid.UUID]int
}

func newFakeDeliveryRepo(tasks ...*model.DeliveryTask) *fakeDeliveryRepo {
	return &fakeDeliveryRepo{
		claimable:   tasks,
		sent:        make(map[uuid.UUID]string),
		failed:      make(map[uuid.UUID]string),
		permanent:   make(map[uuid.UUID]bool),
		rescheduled: make(map[uuid.UUID]time.Time),
		retryCounts: make(map[uuid.UUID]int),
	}
}

func (f *fakeDeliveryRepo) Claim(_ context.Context, _ model.Channel, limit int, _ time.Duration) ([]*model.DeliveryTask, error) {
	if len(f.claimable) > limit {
		out := f.claimable[:limit]
		f.claimable = f.claimable[limit:]
		return out, nil
	}
	out := f.claimable
	f.claimable = nil
	return out, nil
}

func (f *fakeDeliveryRepo) MarkSent(_ context.Context, _ model.Channel, id uuid.UUID, messageID string) error {
	f.sent[id] = messageID
	return nil
}

func (f *fakeDeliveryRepo) Reschedule(_ context.Context, _ model.Channel, id uuid.UUID, retryCount int, _ string, nextAt time.Time) error {
	f.rescheduled[id] = nextAt
	f.retryCounts[id] = retryCount
	return nil
}

func (f *fakeDeliveryRepo) MarkFailed(_ context.Context, _ model.Channel, id uuid.UUID, retryCount int, lastError string, permanent bool) error {
	f.failed[id] = lastError
	f.permanent[id] = permanent
	f.retryCounts[id] = retryCount
	return nil
}

func (f *fakeDeliveryRepo) RetryFailed(context.Context, model.Channel, int) (int64, error) {
	return 0, nil
}

func (f *fakeDeliveryRepo) PendingCount(context.Context, model.Channel) (int, error) {
	return len(f.claimable), nil
}

func (f *fakeDeliveryRepo) PurgeTerminal(context.Context, model.Channel, time.Time) (int64, error) {
	return 0, nil
}

type fakeDeviceRepo struct {
	disabled []uuid.UUID
	touched  []uuid.UUID
}

func (f *fakeDeviceRepo) Register(context.Context, *model.DeviceRegistration) error { return nil }

func (f *fakeDeviceRepo) ListForUser(context.Context, uuid.UUID) ([]*model.DeviceRegistration, error) {
	return nil, nil
}

func (f *fakeDeviceRepo) ListEnabledForUser(context.Context, uuid.UUID) ([]*model.DeviceRegistration, error) {
	return nil, nil
}

func (f *fakeDeviceRepo) Disable(_ context.Context, id uuid.UUID) error {
	f.disabled = append(f.disabled, id)
	return nil
}

func (f *fakeDeviceRepo) TouchLastUsed(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeSender struct {
	err       error
	messageID string
	calls     int
}

func (f *fakeSender) Send(context.Context, *model.DeliveryTask) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.messageID, nil
}

func newTask(retryCount int) *model.DeliveryTask {
	return &model.DeliveryTask{
		ID:         uuid.New(),
		Channel:    model.ChannelEmail,
		Priority:   model.PriorityMedium,
		Status:     model.DeliveryStatusProcessing,
		RetryCount: retryCount,
	}
}

func newWorker(repo *fakeDeliveryRepo, devices *fakeDeviceRepo, sender Sender) *DeliveryWorker {
	return NewDeliveryWorker(repo, devices, sender, Config{
		Channel:     model.ChannelEmail,
		MaxRetries:  3,
		BackoffBase: time.Minute,
	}, metrics.NewWith("test", prometheus.NewRegistry()), logger.Nop())
}

func TestProcessBatchMarksSent(t *testing.T) {
	task := newTask(0)
	repo := newFakeDeliveryRepo(task)
	sender := &fakeSender{messageID: "msg-1"}

	w := newWorker(repo, &fakeDeviceRepo{}, sender)
	w.ProcessBatch(context.Background())

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "msg-1", repo.sent[task.ID])
	assert.Empty(t, repo.failed)
	assert.Empty(t, repo.rescheduled)
}

func TestProcessBatchTouchesDeviceOnSuccess(t *testing.T) {
	task := newTask(0)
	deviceID := uuid.New()
	task.DeviceID = &deviceID
	repo := newFakeDeliveryRepo(task)
	devices := &fakeDeviceRepo{}

	w := newWorker(repo, devices, &fakeSender{messageID: "msg-1"})
	w.ProcessBatch(context.Background())

	require.Len(t, devices.touched, 1)
	assert.Equal(t, deviceID, devices.touched[0])
}

func TestTransientFailureReschedulesWithBackoff(t *testing.T) {
	task := newTask(1)
	repo := newFakeDeliveryRepo(task)
	sender := &fakeSender{err: apperrors.Transient("relay timeout", nil)}

	w := newWorker(repo, &fakeDeviceRepo{}, sender)
	before := time.Now()
	w.ProcessBatch(context.Background())

	nextAt, ok := repo.rescheduled[task.ID]
	require.True(t, ok)
	assert.Equal(t, 2, repo.retryCounts[task.ID])

	// Second failure backs off 2x base.
	assert.WithinDuration(t, before.Add(2*time.Minute), nextAt, 5*time.Second)
	assert.Empty(t, repo.failed)
}

func TestRetriesExhaustedFailTerminally(t *testing.T) {
	task := newTask(3)
	repo := newFakeDeliveryRepo(task)
	sender := &fakeSender{err: apperrors.Transient("relay timeout", nil)}

	w := newWorker(repo, &fakeDeviceRepo{}, sender)
	w.ProcessBatch(context.Background())

	assert.Contains(t, repo.failed, task.ID)
	assert.Empty(t, repo.rescheduled)

	// Exhausted transient failures stay eligible for an operator re-queue.
	assert.False(t, repo.permanent[task.ID])
}

func TestPermanentFailureSkipsRetriesAndDisablesDevice(t *testing.T) {
	task := newTask(0)
	deviceID := uuid.New()
	task.DeviceID = &deviceID
	repo := newFakeDeliveryRepo(task)
	devices := &fakeDeviceRepo{}
	sender := &fakeSender{err: apperrors.Permanent("endpoint gone", nil)}

	w := newWorker(repo, devices, sender)
	w.ProcessBatch(context.Background())

	assert.Contains(t, repo.failed, task.ID)
	assert.True(t, repo.permanent[task.ID])
	assert.Empty(t, repo.rescheduled)
	require.Len(t, devices.disabled, 1)
	assert.Equal(t, deviceID, devices.disabled[0])
}

func TestProcessBatchHonorsBatchSize(t *testing.T) {
	repo := newFakeDeliveryRepo(newTask(0), newTask(0), newTask(0))
	sender := &fakeSender{messageID: "msg"}

	w := NewDeliveryWorker(repo, &fakeDeviceRepo{}, sender, Config{
		Channel:   model.ChannelEmail,
		BatchSize: 2,
	}, metrics.NewWith("test", prometheus.NewRegistry()), logger.Nop())
	w.ProcessBatch(context.Background())

	assert.Equal(t, 2, sender.calls)
	assert.Len(t, repo.claimable, 1)
}

func TestBackoffDoubles(t *testing.T) {
	base := time.Minute
	assert.Equal(t, time.Minute, Backoff(base, 1))
	assert.Equal(t, 2*time.Minute, Backoff(base, 2))
	assert.Equal(t, 4*time.Minute, Backoff(base, 3))
	assert.Equal(t, 8*time.Minute, Backoff(base, 4))
	assert.Equal(t, time.Minute, Backoff(base, 0))
}
