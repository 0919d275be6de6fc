package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeSystem                NotificationType = "system"
	NotificationTypeTaskAssigned          NotificationType = "task_assigned"
	NotificationTypeTaskUpdated           NotificationType = "task_updated"
	NotificationTypeTaskComment           NotificationType = "task_comment"
	NotificationTypeCommentMention        NotificationType = "comment_mention"
	NotificationTypeTaskUnassigned        NotificationType = "task_unassigned"
	NotificationTypeFormAssigned          NotificationType = "form_assigned"
	NotificationTypeFormUnassigned        NotificationType = "form_unassigned"
	NotificationTypeApprovalRequested     NotificationType = "approval_requested"
	NotificationTypeApprovalStatusChanged NotificationType = "approval_status_changed"
	NotificationTypeOrganizationAdded     NotificationType = "organization_added"
	NotificationTypeProjectAdded          NotificationType = "project_added"
	NotificationTypeEntityAssigned        NotificationType = "entity_assigned"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationTypeSystem:                {},
	NotificationTypeTaskAssigned:          {},
	NotificationTypeTaskUpdated:           {},
	NotificationTypeTaskComment:           {},
	NotificationTypeCommentMention:        {},
	NotificationTypeTaskUnassigned:        {},
	NotificationTypeFormAssigned:          {},
	NotificationTypeFormUnassigned:        {},
	NotificationTypeApprovalRequested:     {},
	NotificationTypeApprovalStatusChanged: {},
	NotificationTypeOrganizationAdded:     {},
	NotificationTypeProjectAdded:          {},
	NotificationTypeEntityAssigned:        {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// SelfNotifiable reports whether a notification of this type is still
// delivered when the actor and the recipient are the same user. The
// allowlist is intentionally a fixed pair: system broadcasts always go out,
// and an approval requester gets a confirmation of their own request.
func (t NotificationType) SelfNotifiable() bool {
	return t == NotificationTypeSystem || t == NotificationTypeApprovalRequested
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank orders priorities for queue claims; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// ScheduleDelay is the tiered delay applied when a delivery task is
// enqueued: critical sends immediately, everything else waits out a
// coalescing window proportional to urgency.
func (p Priority) ScheduleDelay() time.Duration {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 5 * time.Minute
	case PriorityMedium:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

type Notification struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	UserID     uuid.UUID        `db:"user_id" json:"user_id"`
	Type       NotificationType `db:"type" json:"type"`
	Priority   Priority         `db:"priority" json:"priority"`
	Title      string           `db:"title" json:"title"`
	Message    string           `db:"message" json:"message"`
	Payload    json.RawMessage  `db:"payload" json:"payload,omitempty"`
	EntityType *string          `db:"entity_type" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID       `db:"entity_id" json:"entity_id,omitempty"`
	IsRead     bool             `db:"is_read" json:"is_read"`
	ReadAt     *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedBy  *uuid.UUID       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}
