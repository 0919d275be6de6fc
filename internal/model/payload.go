package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Payload is the structured data attached to a notification. Each
// notification type carries exactly one payload shape; the closed set below
// replaces the free-form JSON blob the client used to pick apart.
type Payload interface {
	NotificationType() NotificationType
}

type TaskPayload struct {
	TaskID      uuid.UUID        `json:"task_id"`
	TaskTitle   string           `json:"task_title"`
	ProjectID   uuid.UUID        `json:"project_id"`
	ProjectName string           `json:"project_name"`
	ActorID     *uuid.UUID       `json:"actor_id,omitempty"`
	ActorName   string           `json:"actor_name,omitempty"`
	Urgency     string           `json:"urgency,omitempty"`
	Kind        NotificationType `json:"-"`
}

func (p TaskPayload) NotificationType() NotificationType { return p.Kind }

type CommentPayload struct {
	TaskID      uuid.UUID `json:"task_id"`
	TaskTitle   string    `json:"task_title"`
	CommentID   uuid.UUID `json:"comment_id"`
	Excerpt     string    `json:"excerpt"`
	AuthorID    uuid.UUID `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	IsMention   bool      `json:"is_mention"`
	ProjectID   uuid.UUID `json:"project_id"`
	ProjectName string    `json:"project_name"`
}

func (p CommentPayload) NotificationType() NotificationType {
	if p.IsMention {
		return NotificationTypeCommentMention
	}
	return NotificationTypeTaskComment
}

type FormPayload struct {
	FormID      uuid.UUID `json:"form_id"`
	FormName    string    `json:"form_name"`
	ProjectID   uuid.UUID `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Assigned    bool      `json:"assigned"`
}

func (p FormPayload) NotificationType() NotificationType {
	if p.Assigned {
		return NotificationTypeFormAssigned
	}
	return NotificationTypeFormUnassigned
}

type ApprovalPayload struct {
	ApprovalID    uuid.UUID `json:"approval_id"`
	ApprovalTitle string    `json:"approval_title"`
	RequesterID   uuid.UUID `json:"requester_id"`
	RequesterName string    `json:"requester_name"`
	Status        string    `json:"status,omitempty"`
	DueAt         *string   `json:"due_at,omitempty"`
	ProjectID     uuid.UUID `json:"project_id"`
	Requested     bool      `json:"requested"`
}

func (p ApprovalPayload) NotificationType() NotificationType {
	if p.Requested {
		return NotificationTypeApprovalRequested
	}
	return NotificationTypeApprovalStatusChanged
}

type MembershipPayload struct {
	ScopeID   uuid.UUID `json:"scope_id"`
	ScopeName string    `json:"scope_name"`
	Scope     string    `json:"scope"` // "organization" or "project"
	Role      string    `json:"role,omitempty"`
	AddedBy   uuid.UUID `json:"added_by"`
}

func (p MembershipPayload) NotificationType() NotificationType {
	if p.Scope == "organization" {
		return NotificationTypeOrganizationAdded
	}
	return NotificationTypeProjectAdded
}

type SystemPayload struct {
	Category string `json:"category,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
}

func (p SystemPayload) NotificationType() NotificationType { return NotificationTypeSystem }

type EntityPayload struct {
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	EntityName string    `json:"entity_name"`
	ProjectID  uuid.UUID `json:"project_id"`
}

func (p EntityPayload) NotificationType() NotificationType { return NotificationTypeEntityAssigned }

func EncodePayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.NotificationType(), err)
	}
	return raw, nil
}

// DecodePayload resolves the raw payload into the variant matching the
// notification type. Unknown types are rejected rather than decoded into a
// generic map.
func DecodePayload(t NotificationType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	unmarshal := func(v Payload) (Payload, error) {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
		}
		return v, nil
	}

	switch t {
	case NotificationTypeTaskAssigned, NotificationTypeTaskUpdated, NotificationTypeTaskUnassigned:
		p := &TaskPayload{Kind: t}
		return unmarshal(p)
	case NotificationTypeTaskComment, NotificationTypeCommentMention:
		return unmarshal(&CommentPayload{})
	case NotificationTypeFormAssigned, NotificationTypeFormUnassigned:
		return unmarshal(&FormPayload{})
	case NotificationTypeApprovalRequested, NotificationTypeApprovalStatusChanged:
		return unmarshal(&ApprovalPayload{})
	case NotificationTypeOrganizationAdded, NotificationTypeProjectAdded:
		return unmarshal(&MembershipPayload{})
	case NotificationTypeSystem:
		return unmarshal(&SystemPayload{})
	case NotificationTypeEntityAssigned:
		return unmarshal(&EntityPayload{})
	default:
		return nil, fmt.Errorf("unknown notification type: %s", t)
	}
}
