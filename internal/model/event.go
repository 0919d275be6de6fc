package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTaskAssigned       EventType = "task.assigned"
	EventTaskUnassigned     EventType = "task.unassigned"
	EventTaskUpdated        EventType = "task.updated"
	EventTaskCommented      EventType = "task.commented"
	EventFormAssigned       EventType = "form.assigned"
	EventFormUnassigned     EventType = "form.unassigned"
	EventApprovalRequested  EventType = "approval.requested"
	EventApprovalResponded  EventType = "approval.responded"
	EventApprovalCommented  EventType = "approval.commented"
	EventOrgMemberAdded     EventType = "organization.member_added"
	EventProjectMemberAdded EventType = "project.member_added"
)

// Event is one domain mutation as reported by a collaborator service. The
// dispatcher routes it by Type; exactly one of the detail fields is set.
type Event struct {
	Type       EventType        `json:"type"`
	ActorID    uuid.UUID        `json:"actor_id"`
	ActorName  string           `json:"actor_name,omitempty"`
	Task       *TaskEvent       `json:"task,omitempty"`
	Comment    *CommentEvent    `json:"comment,omitempty"`
	Form       *FormEvent       `json:"form,omitempty"`
	Approval   *ApprovalEvent   `json:"approval,omitempty"`
	Membership *MembershipEvent `json:"membership,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type TaskEvent struct {
	TaskID         uuid.UUID  `json:"task_id"`
	Title          string     `json:"title"`
	ProjectID      uuid.UUID  `json:"project_id"`
	ProjectName    string     `json:"project_name"`
	Urgency        string     `json:"urgency,omitempty"`
	AssigneeID     *uuid.UUID `json:"assignee_id,omitempty"`
	PrevAssigneeID *uuid.UUID `json:"prev_assignee_id,omitempty"`
	ChangedFields  []string   `json:"changed_fields,omitempty"`
}

type CommentEvent struct {
	TaskID       uuid.UUID   `json:"task_id"`
	TaskTitle    string      `json:"task_title"`
	ProjectID    uuid.UUID   `json:"project_id"`
	ProjectName  string      `json:"project_name"`
	CommentID    uuid.UUID   `json:"comment_id"`
	Body         string      `json:"body"`
	AssigneeIDs  []uuid.UUID `json:"assignee_ids,omitempty"`
	MentionedIDs []uuid.UUID `json:"mentioned_ids,omitempty"`
}

type FormEvent struct {
	FormID      uuid.UUID  `json:"form_id"`
	FormName    string     `json:"form_name"`
	ProjectID   uuid.UUID  `json:"project_id"`
	ProjectName string     `json:"project_name"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
}

type ApprovalEvent struct {
	ApprovalID  uuid.UUID   `json:"approval_id"`
	Title       string      `json:"title"`
	ProjectID   uuid.UUID   `json:"project_id"`
	RequesterID uuid.UUID   `json:"requester_id"`
	ApproverIDs []uuid.UUID `json:"approver_ids"`
	Status      string      `json:"status,omitempty"`
	DueAt       *time.Time  `json:"due_at,omitempty"`
}

type MembershipEvent struct {
	ScopeID   uuid.UUID `json:"scope_id"`
	ScopeName string    `json:"scope_name"`
	Scope     string    `json:"scope"`
	MemberID  uuid.UUID `json:"member_id"`
	Role      string    `json:"role,omitempty"`
}
