package worker

import (
	"context"
	"time"

	"github.com/sitebeam/notify-service/internal/config"
	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
	"github.com/sitebeam/notify-service/internal/service/notification"
	"github.com/sitebeam/notify-service/pkg/logger"
)

// Janitor purges old notifications and terminal-state delivery tasks on a
// fixed interval. The same code path backs the operator purge endpoint.
type Janitor struct {
	notifications notification.Service
	delivery      repository.DeliveryRepository
	config        config.JanitorConfig
	logger        *logger.Logger
}

func NewJanitor(
	notifications notification.Service,
	delivery repository.DeliveryRepository,
	cfg config.JanitorConfig,
	log *logger.Logger,
) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.ReadMaxAge <= 0 {
		cfg.ReadMaxAge = 30 * 24 * time.Hour
	}
	if cfg.UnreadMaxAge <= 0 {
		cfg.UnreadMaxAge = 90 * 24 * time.Hour
	}
	if cfg.TaskMaxAge <= 0 {
		cfg.TaskMaxAge = 30 * 24 * time.Hour
	}

	return &Janitor{
		notifications: notifications,
		delivery:      delivery,
		config:        cfg,
		logger:        log,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.logger.Info("starting janitor")

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("shutting down janitor")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass over the store and both queues.
func (j *Janitor) Sweep(ctx context.Context) {
	if _, err := j.notifications.Purge(ctx, j.config.ReadMaxAge, j.config.UnreadMaxAge); err != nil {
		j.logger.Error(err, "failed to purge notifications")
	}

	before := time.Now().Add(-j.config.TaskMaxAge)
	for _, channel := range []model.Channel{model.ChannelEmail, model.ChannelPush} {
		purged, err := j.delivery.PurgeTerminal(ctx, channel, before)
		if err != nil {
			j.logger.Error(err, "failed to purge delivery tasks", "channel", string(channel))
			continue
		}
		if purged > 0 {
			j.logger.Info("purged delivery tasks", "channel", string(channel), "count", purged)
		}
	}
}
