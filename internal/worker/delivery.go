package worker

import (
	"context"
	"time"

	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/logger"
	"github.com/sitebeam/notify-service/pkg/metrics"
)

// Sender delivers one claimed task over its channel's transport and returns
// the transport-assigned message id.
type Sender interface {
	Send(ctx context.Context, task *model.DeliveryTask) (string, error)
}

type Config struct {
	Channel           model.Channel
	Interval          time.Duration
	BatchSize         int
	MaxRetries        int
	BackoffBase       time.Duration
	ProcessingTimeout time.Duration
	TransportTimeout  time.Duration
}

// DeliveryWorker drains one channel's queue: claim a batch, send, record the
// outcome. Every step tolerates concurrent invocations; the claim query is
// what keeps two workers off the same task.
type DeliveryWorker struct {
	repo    repository.DeliveryRepository
	devices repository.DeviceRepository
	sender  Sender
	config  Config
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewDeliveryWorker(
	repo repository.DeliveryRepository,
	devices repository.DeviceRepository,
	sender Sender,
	config Config,
	m *metrics.Metrics,
	log *logger.Logger,
) *DeliveryWorker {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = time.Minute
	}
	if config.ProcessingTimeout <= 0 {
		config.ProcessingTimeout = 5 * time.Minute
	}
	if config.TransportTimeout <= 0 {
		config.TransportTimeout = 30 * time.Second
	}

	return &DeliveryWorker{
		repo:    repo,
		devices: devices,
		sender:  sender,
		config:  config,
		metrics: m,
		logger:  log.WithFields(map[string]interface{}{"channel": string(config.Channel)}),
	}
}

func (w *DeliveryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.Info("starting delivery worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down delivery worker")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch runs one claim-and-send cycle. Finding nothing runnable is
// the common case and a no-op.
func (w *DeliveryWorker) ProcessBatch(ctx context.Context) {
	channel := string(w.config.Channel)

	tasks, err := w.repo.Claim(ctx, w.config.Channel, w.config.BatchSize, w.config.ProcessingTimeout)
	if err != nil {
		w.logger.Error(err, "failed to claim tasks")
		return
	}
	w.metrics.ClaimBatchSize.WithLabelValues(channel).Observe(float64(len(tasks)))
	if len(tasks) == 0 {
		return
	}

	for _, task := range tasks {
		w.processTask(ctx, task)
	}

	if depth, err := w.repo.PendingCount(ctx, w.config.Channel); err == nil {
		w.metrics.QueueDepth.WithLabelValues(channel).Set(float64(depth))
	}
}

func (w *DeliveryWorker) processTask(ctx context.Context, task *model.DeliveryTask) {
	channel := string(w.config.Channel)

	sendCtx, cancel := context.WithTimeout(ctx, w.config.TransportTimeout)
	defer cancel()

	start := time.Now()
	messageID, err := w.sender.Send(sendCtx, task)
	w.metrics.SendLatency.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	if err != nil {
		w.handleFailure(ctx, task, err)
		return
	}

	if err := w.repo.MarkSent(ctx, w.config.Channel, task.ID, messageID); err != nil {
		w.logger.Error(err, "failed to mark task sent", "task_id", task.ID.String())
		return
	}
	w.metrics.TasksSent.WithLabelValues(channel).Inc()

	if task.DeviceID != nil {
		if err := w.devices.TouchLastUsed(ctx, *task.DeviceID, time.Now()); err != nil {
			w.logger.Warn("failed to update device last used", "device_id", task.DeviceID.String())
		}
	}

	w.logger.Debug("task sent", "task_id", task.ID.String(), "message_id", messageID)
}

func (w *DeliveryWorker) handleFailure(ctx context.Context, task *model.DeliveryTask, sendErr error) {
	channel := string(w.config.Channel)
	retryCount := task.RetryCount + 1

	// A permanently invalid destination is never retried. For push that also
	// disables the device registration so future notifications skip it.
	if apperrors.IsPermanent(sendErr) {
		if err := w.repo.MarkFailed(ctx, w.config.Channel, task.ID, retryCount, sendErr.Error(), true); err != nil {
			w.logger.Error(err, "failed to mark task failed", "task_id", task.ID.String())
			return
		}
		w.metrics.TasksFailed.WithLabelValues(channel, "permanent").Inc()

		if task.DeviceID != nil {
			if err := w.devices.Disable(ctx, *task.DeviceID); err != nil {
				w.logger.Error(err, "failed to disable device", "device_id", task.DeviceID.String())
			} else {
				w.logger.Info("disabled invalid device endpoint", "device_id", task.DeviceID.String())
			}
		}
		return
	}

	if retryCount > w.config.MaxRetries {
		if err := w.repo.MarkFailed(ctx, w.config.Channel, task.ID, retryCount, sendErr.Error(), false); err != nil {
			w.logger.Error(err, "failed to mark task failed", "task_id", task.ID.String())
			return
		}
		w.metrics.TasksFailed.WithLabelValues(channel, "retries_exhausted").Inc()
		w.logger.Error(sendErr, "task failed terminally",
			"task_id", task.ID.String(), "retries", task.RetryCount)
		return
	}

	nextAt := time.Now().Add(Backoff(w.config.BackoffBase, retryCount))
	if err := w.repo.Reschedule(ctx, w.config.Channel, task.ID, retryCount, sendErr.Error(), nextAt); err != nil {
		w.logger.Error(err, "failed to reschedule task", "task_id", task.ID.String())
		return
	}
	w.metrics.TasksRetried.WithLabelValues(channel).Inc()
	w.logger.Warn("task send failed, rescheduled",
		"task_id", task.ID.String(), "retry", retryCount, "next_at", nextAt.Format(time.RFC3339))
}

// Backoff doubles per attempt: base after the first failure, 2x base after
// the second, and so on.
func Backoff(base time.Duration, retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	return base << (retryCount - 1)
}
