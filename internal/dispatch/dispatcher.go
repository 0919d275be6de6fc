package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/email"
	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/repository"
	"github.com/sitebeam/notify-service/internal/service/preference"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/logger"
	"github.com/sitebeam/notify-service/pkg/messaging"
	"github.com/sitebeam/notify-service/pkg/metrics"
)

// Draft is one intended notification produced by an event handler, before
// suppression and preference filtering.
type Draft struct {
	Recipient  uuid.UUID
	Type       model.NotificationType
	Priority   model.Priority
	Title      string
	Message    string
	Payload    model.Payload
	EntityType string
	EntityID   *uuid.UUID
}

// HandlerFunc translates a domain event into zero or more drafts.
type HandlerFunc func(evt *model.Event) ([]Draft, error)

// Result reports what one dispatch produced. All recipients being filtered
// out is an expected outcome, not an error: NoOp reports it.
type Result struct {
	Created    []uuid.UUID
	Suppressed int
}

func (r *Result) NoOp() bool {
	return len(r.Created) == 0
}

// Dispatcher is the event trigger layer: domain event in, notification rows
// plus channel delivery tasks out, atomically per recipient. The explicit
// handler registry replaces what used to be database trigger bindings.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[model.EventType]HandlerFunc

	notifications repository.NotificationRepository
	devices       repository.DeviceRepository
	directory     repository.UserDirectory
	prefs         preference.Service
	broker        messaging.Broker
	metrics       *metrics.Metrics
	logger        *logger.Logger

	now func() time.Time
}

func NewDispatcher(
	notifications repository.NotificationRepository,
	devices repository.DeviceRepository,
	directory repository.UserDirectory,
	prefs preference.Service,
	broker messaging.Broker,
	m *metrics.Metrics,
	log *logger.Logger,
) *Dispatcher {
	d := &Dispatcher{
		handlers:      make(map[model.EventType]HandlerFunc),
		notifications: notifications,
		devices:       devices,
		directory:     directory,
		prefs:         prefs,
		broker:        broker,
		metrics:       m,
		logger:        log,
		now:           time.Now,
	}
	d.registerDefaults()
	return d
}

// Register binds a handler to an event type, replacing any existing one.
func (d *Dispatcher) Register(t model.EventType, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = h
}

// Dispatch runs the registered handler for the event and materializes its
// drafts. Per-recipient persistence failures are logged and skipped, never
// propagated: notification creation must not fail the caller's business
// transaction.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *model.Event) (*Result, error) {
	if evt == nil {
		return nil, apperrors.BadRequest("event cannot be nil", nil)
	}

	d.mu.RLock()
	handler, ok := d.handlers[evt.Type]
	d.mu.RUnlock()
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("no handler for event type: %s", evt.Type), nil)
	}

	drafts, err := handler(evt)
	if err != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid %s event", evt.Type), err)
	}

	result := &Result{}
	now := d.now()

	for _, draft := range drafts {
		created, err := d.materialize(ctx, evt, draft, now)
		if err != nil {
			d.logger.Error(err, "failed to create notification",
				"event_type", string(evt.Type),
				"recipient", draft.Recipient.String())
			continue
		}
		if created == nil {
			result.Suppressed++
			continue
		}
		result.Created = append(result.Created, created.ID)
	}

	if result.NoOp() {
		d.logger.Debug("dispatch produced no notifications",
			"event_type", string(evt.Type), "suppressed", result.Suppressed)
	}
	return result, nil
}

// materialize applies suppression and preference gates for one draft and, if
// anything survives, writes the notification and its delivery tasks in one
// transaction. Returns (nil, nil) when the draft was filtered out.
func (d *Dispatcher) materialize(ctx context.Context, evt *model.Event, draft Draft, now time.Time) (*model.Notification, error) {
	if !draft.Type.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown notification type: %s", draft.Type), nil)
	}
	if !draft.Priority.Valid() {
		draft.Priority = model.PriorityMedium
	}

	// Self-action suppression: actors do not get notified about their own
	// mutations, outside the fixed allowlist.
	if draft.Recipient == evt.ActorID && !draft.Type.SelfNotifiable() {
		d.metrics.NotificationsSuppressed.WithLabelValues("self_action").Inc()
		return nil, nil
	}

	inApp, err := d.prefs.Allowed(ctx, draft.Recipient, draft.Type, model.ChannelInApp, now)
	if err != nil {
		return nil, err
	}
	emailAllowed, err := d.prefs.Allowed(ctx, draft.Recipient, draft.Type, model.ChannelEmail, now)
	if err != nil {
		return nil, err
	}
	pushAllowed, err := d.prefs.Allowed(ctx, draft.Recipient, draft.Type, model.ChannelPush, now)
	if err != nil {
		return nil, err
	}
	if !inApp && !emailAllowed && !pushAllowed {
		d.metrics.NotificationsSuppressed.WithLabelValues("preferences").Inc()
		return nil, nil
	}

	payload, err := model.EncodePayload(draft.Payload)
	if err != nil {
		return nil, err
	}

	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    draft.Recipient,
		Type:      draft.Type,
		Priority:  draft.Priority,
		Title:     draft.Title,
		Message:   draft.Message,
		Payload:   payload,
		CreatedAt: now,
	}
	if draft.EntityType != "" {
		n.EntityType = &draft.EntityType
		n.EntityID = draft.EntityID
	}
	if evt.ActorID != uuid.Nil {
		actor := evt.ActorID
		n.CreatedBy = &actor
	}

	scheduledFor := now.Add(draft.Priority.ScheduleDelay())
	var tasks []*model.DeliveryTask

	if emailAllowed {
		task, err := d.emailTask(ctx, n, scheduledFor)
		if err != nil {
			// Missing address or render failure loses the email channel, not
			// the notification.
			d.logger.Warn("skipping email delivery",
				"notification_id", n.ID.String(), "error", err.Error())
		} else {
			tasks = append(tasks, task)
		}
	}

	if pushAllowed {
		pushTasks, err := d.pushTasks(ctx, n, scheduledFor)
		if err != nil {
			d.logger.Warn("skipping push delivery",
				"notification_id", n.ID.String(), "error", err.Error())
		} else {
			tasks = append(tasks, pushTasks...)
		}
	}

	if err := d.notifications.CreateWithTasks(ctx, n, tasks); err != nil {
		return nil, err
	}

	d.metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	for _, task := range tasks {
		d.metrics.TasksEnqueued.WithLabelValues(string(task.Channel)).Inc()
	}

	// Realtime fan-out rides on notification creation, not on the delivery
	// queues: at-most-once, failure logged and forgotten.
	if inApp {
		if err := d.broker.Publish(ctx, messaging.UserChannel(n.UserID), n); err != nil {
			d.metrics.RealtimePublishErrors.Inc()
			d.logger.Warn("realtime publish failed",
				"notification_id", n.ID.String(), "error", err.Error())
		} else {
			d.metrics.RealtimePublished.Inc()
		}
	}

	return n, nil
}

func (d *Dispatcher) emailTask(ctx context.Context, n *model.Notification, scheduledFor time.Time) (*model.DeliveryTask, error) {
	addr, name, err := d.directory.Email(ctx, n.UserID)
	if err != nil {
		return nil, err
	}

	content, err := email.Render(n, addr, name)
	if err != nil {
		return nil, err
	}
	payload, err := model.EncodePayloadJSON(content)
	if err != nil {
		return nil, err
	}

	return &model.DeliveryTask{
		ID:             uuid.New(),
		NotificationID: n.ID,
		UserID:         n.UserID,
		Channel:        model.ChannelEmail,
		Priority:       n.Priority,
		Recipient:      addr,
		Payload:        payload,
		Status:         model.DeliveryStatusPending,
		ScheduledFor:   scheduledFor,
		CreatedAt:      n.CreatedAt,
	}, nil
}

func (d *Dispatcher) pushTasks(ctx context.Context, n *model.Notification, scheduledFor time.Time) ([]*model.DeliveryTask, error) {
	devices, err := d.devices.ListEnabledForUser(ctx, n.UserID)
	if err != nil {
		return nil, err
	}

	var tasks []*model.DeliveryTask
	for _, device := range devices {
		content := &model.PushContent{
			Platform: string(device.Platform),
			Title:    n.Title,
			Body:     n.Message,
			Data: map[string]string{
				"notification_id": n.ID.String(),
				"type":            string(n.Type),
			},
		}
		if n.EntityType != nil {
			content.Data["entity_type"] = *n.EntityType
			if n.EntityID != nil {
				content.Data["entity_id"] = n.EntityID.String()
			}
		}

		payload, err := model.EncodePayloadJSON(content)
		if err != nil {
			return nil, err
		}

		deviceID := device.ID
		tasks = append(tasks, &model.DeliveryTask{
			ID:             uuid.New(),
			NotificationID: n.ID,
			UserID:         n.UserID,
			Channel:        model.ChannelPush,
			Priority:       n.Priority,
			Recipient:      device.Token,
			DeviceID:       &deviceID,
			Payload:        payload,
			Status:         model.DeliveryStatusPending,
			ScheduledFor:   scheduledFor,
			CreatedAt:      n.CreatedAt,
		})
	}
	return tasks, nil
}
