package dispatch

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sitebeam/notify-service/internal/model"
)

func (d *Dispatcher) registerDefaults() {
	d.Register(model.EventTaskAssigned, d.handleTaskAssigned)
	d.Register(model.EventTaskUnassigned, d.handleTaskUnassigned)
	d.Register(model.EventTaskUpdated, d.handleTaskUpdated)
	d.Register(model.EventTaskCommented, d.handleTaskCommented)
	d.Register(model.EventFormAssigned, d.handleFormAssigned)
	d.Register(model.EventFormUnassigned, d.handleFormUnassigned)
	d.Register(model.EventApprovalRequested, d.handleApprovalRequested)
	d.Register(model.EventApprovalResponded, d.handleApprovalResponded)
	d.Register(model.EventApprovalCommented, d.handleApprovalCommented)
	d.Register(model.EventOrgMemberAdded, d.handleMemberAdded)
	d.Register(model.EventProjectMemberAdded, d.handleMemberAdded)
}

// taskPriority maps a task's domain urgency onto a notification priority.
func taskPriority(urgency string) model.Priority {
	switch urgency {
	case "urgent", "critical":
		return model.PriorityHigh
	case "low":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

// approvalPriority escalates approvals that are due within a day.
func approvalPriority(dueAt *time.Time, now time.Time) model.Priority {
	if dueAt != nil && dueAt.Sub(now) <= 24*time.Hour {
		return model.PriorityCritical
	}
	return model.PriorityMedium
}

func taskDraft(evt *model.Event, recipient uuid.UUID, t model.NotificationType, priority model.Priority, title, message string) Draft {
	task := evt.Task
	entityID := task.TaskID
	actorID := evt.ActorID
	return Draft{
		Recipient:  recipient,
		Type:       t,
		Priority:   priority,
		Title:      title,
		Message:    message,
		EntityType: "task",
		EntityID:   &entityID,
		Payload: model.TaskPayload{
			TaskID:      task.TaskID,
			TaskTitle:   task.Title,
			ProjectID:   task.ProjectID,
			ProjectName: task.ProjectName,
			ActorID:     &actorID,
			ActorName:   evt.ActorName,
			Urgency:     task.Urgency,
			Kind:        t,
		},
	}
}

func (d *Dispatcher) handleTaskAssigned(evt *model.Event) ([]Draft, error) {
	if evt.Task == nil {
		return nil, fmt.Errorf("task event payload is required")
	}
	if evt.Task.AssigneeID == nil {
		return nil, nil
	}
	return []Draft{taskDraft(evt, *evt.Task.AssigneeID,
		model.NotificationTypeTaskAssigned,
		taskPriority(evt.Task.Urgency),
		"Task assigned to you",
		fmt.Sprintf("%s assigned you the task %q in %s.", evt.ActorName, evt.Task.Title, evt.Task.ProjectName),
	)}, nil
}

func (d *Dispatcher) handleTaskUnassigned(evt *model.Event) ([]Draft, error) {
	if evt.Task == nil {
		return nil, fmt.Errorf("task event payload is required")
	}
	if evt.Task.PrevAssigneeID == nil {
		return nil, nil
	}
	return []Draft{taskDraft(evt, *evt.Task.PrevAssigneeID,
		model.NotificationTypeTaskUnassigned,
		model.PriorityMedium,
		"Task unassigned",
		fmt.Sprintf("%s removed you from the task %q in %s.", evt.ActorName, evt.Task.Title, evt.Task.ProjectName),
	)}, nil
}

func (d *Dispatcher) handleTaskUpdated(evt *model.Event) ([]Draft, error) {
	if evt.Task == nil {
		return nil, fmt.Errorf("task event payload is required")
	}
	if evt.Task.AssigneeID == nil {
		return nil, nil
	}
	return []Draft{taskDraft(evt, *evt.Task.AssigneeID,
		model.NotificationTypeTaskUpdated,
		taskPriority(evt.Task.Urgency),
		"Task updated",
		fmt.Sprintf("%s updated the task %q in %s.", evt.ActorName, evt.Task.Title, evt.Task.ProjectName),
	)}, nil
}

// handleTaskCommented resolves the task's assignees plus everyone
// @-mentioned, deduplicated; a mention wins over a plain comment for users
// in both sets. The dispatcher's self-action gate drops the author.
func (d *Dispatcher) handleTaskCommented(evt *model.Event) ([]Draft, error) {
	comment := evt.Comment
	if comment == nil {
		return nil, fmt.Errorf("comment event payload is required")
	}

	mentioned := make(map[uuid.UUID]bool, len(comment.MentionedIDs))
	for _, id := range comment.MentionedIDs {
		mentioned[id] = true
	}

	seen := make(map[uuid.UUID]bool)
	var drafts []Draft

	addDraft := func(recipient uuid.UUID, isMention bool) {
		if seen[recipient] {
			return
		}
		seen[recipient] = true

		t := model.NotificationTypeTaskComment
		title := "New comment"
		message := fmt.Sprintf("%s commented on the task %q.", evt.ActorName, comment.TaskTitle)
		if isMention {
			t = model.NotificationTypeCommentMention
			title = "You were mentioned"
			message = fmt.Sprintf("%s mentioned you in a comment on %q.", evt.ActorName, comment.TaskTitle)
		}

		entityID := comment.TaskID
		drafts = append(drafts, Draft{
			Recipient:  recipient,
			Type:       t,
			Priority:   model.PriorityMedium,
			Title:      title,
			Message:    message,
			EntityType: "task",
			EntityID:   &entityID,
			Payload: model.CommentPayload{
				TaskID:      comment.TaskID,
				TaskTitle:   comment.TaskTitle,
				CommentID:   comment.CommentID,
				Excerpt:     excerpt(comment.Body),
				AuthorID:    evt.ActorID,
				AuthorName:  evt.ActorName,
				IsMention:   isMention,
				ProjectID:   comment.ProjectID,
				ProjectName: comment.ProjectName,
			},
		})
	}

	for _, id := range comment.MentionedIDs {
		addDraft(id, true)
	}
	for _, id := range comment.AssigneeIDs {
		addDraft(id, mentioned[id])
	}

	return drafts, nil
}

func (d *Dispatcher) handleFormAssigned(evt *model.Event) ([]Draft, error) {
	return d.formDraft(evt, true)
}

func (d *Dispatcher) handleFormUnassigned(evt *model.Event) ([]Draft, error) {
	return d.formDraft(evt, false)
}

func (d *Dispatcher) formDraft(evt *model.Event, assigned bool) ([]Draft, error) {
	form := evt.Form
	if form == nil {
		return nil, fmt.Errorf("form event payload is required")
	}
	if form.AssigneeID == nil {
		return nil, nil
	}

	t := model.NotificationTypeFormAssigned
	title := "Form assigned to you"
	message := fmt.Sprintf("%s assigned you the form %q in %s.", evt.ActorName, form.FormName, form.ProjectName)
	if !assigned {
		t = model.NotificationTypeFormUnassigned
		title = "Form unassigned"
		message = fmt.Sprintf("%s removed you from the form %q in %s.", evt.ActorName, form.FormName, form.ProjectName)
	}

	entityID := form.FormID
	return []Draft{{
		Recipient:  *form.AssigneeID,
		Type:       t,
		Priority:   model.PriorityMedium,
		Title:      title,
		Message:    message,
		EntityType: "form",
		EntityID:   &entityID,
		Payload: model.FormPayload{
			FormID:      form.FormID,
			FormName:    form.FormName,
			ProjectID:   form.ProjectID,
			ProjectName: form.ProjectName,
			Assigned:    assigned,
		},
	}}, nil
}

// handleApprovalRequested notifies every approver, plus the requester with a
// confirmation of their own request (the one case besides system broadcasts
// where a self-notification is intended).
func (d *Dispatcher) handleApprovalRequested(evt *model.Event) ([]Draft, error) {
	approval := evt.Approval
	if approval == nil {
		return nil, fmt.Errorf("approval event payload is required")
	}

	priority := approvalPriority(approval.DueAt, d.now())
	var drafts []Draft
	seen := make(map[uuid.UUID]bool)

	add := func(recipient uuid.UUID, title, message string) {
		if seen[recipient] {
			return
		}
		seen[recipient] = true
		drafts = append(drafts, d.approvalDraft(evt, recipient,
			model.NotificationTypeApprovalRequested, priority, title, message, true))
	}

	for _, approverID := range approval.ApproverIDs {
		add(approverID, "Approval requested",
			fmt.Sprintf("%s requested your approval on %q.", evt.ActorName, approval.Title))
	}
	add(approval.RequesterID, "Approval request submitted",
		fmt.Sprintf("Your approval request %q was sent to %d approver(s).", approval.Title, len(approval.ApproverIDs)))

	return drafts, nil
}

// handleApprovalResponded notifies the requester and every approver other
// than the one who responded.
func (d *Dispatcher) handleApprovalResponded(evt *model.Event) ([]Draft, error) {
	approval := evt.Approval
	if approval == nil {
		return nil, fmt.Errorf("approval event payload is required")
	}

	title := "Approval update"
	message := fmt.Sprintf("%s marked the approval %q as %s.", evt.ActorName, approval.Title, approval.Status)
	return d.approvalFanout(evt, title, message), nil
}

func (d *Dispatcher) handleApprovalCommented(evt *model.Event) ([]Draft, error) {
	approval := evt.Approval
	if approval == nil {
		return nil, fmt.Errorf("approval event payload is required")
	}

	title := "Approval discussion"
	message := fmt.Sprintf("%s commented on the approval %q.", evt.ActorName, approval.Title)
	return d.approvalFanout(evt, title, message), nil
}

func (d *Dispatcher) approvalFanout(evt *model.Event, title, message string) []Draft {
	approval := evt.Approval
	var drafts []Draft
	seen := make(map[uuid.UUID]bool)

	add := func(recipient uuid.UUID) {
		if seen[recipient] {
			return
		}
		seen[recipient] = true
		drafts = append(drafts, d.approvalDraft(evt, recipient,
			model.NotificationTypeApprovalStatusChanged, model.PriorityMedium, title, message, false))
	}

	add(approval.RequesterID)
	for _, approverID := range approval.ApproverIDs {
		add(approverID)
	}
	return drafts
}

func (d *Dispatcher) approvalDraft(evt *model.Event, recipient uuid.UUID, t model.NotificationType, priority model.Priority, title, message string, requested bool) Draft {
	approval := evt.Approval
	entityID := approval.ApprovalID

	var dueAt *string
	if approval.DueAt != nil {
		s := approval.DueAt.Format(time.RFC3339)
		dueAt = &s
	}

	return Draft{
		Recipient:  recipient,
		Type:       t,
		Priority:   priority,
		Title:      title,
		Message:    message,
		EntityType: "approval",
		EntityID:   &entityID,
		Payload: model.ApprovalPayload{
			ApprovalID:    approval.ApprovalID,
			ApprovalTitle: approval.Title,
			RequesterID:   approval.RequesterID,
			RequesterName: evt.ActorName,
			Status:        approval.Status,
			DueAt:         dueAt,
			ProjectID:     approval.ProjectID,
			Requested:     requested,
		},
	}
}

func (d *Dispatcher) handleMemberAdded(evt *model.Event) ([]Draft, error) {
	membership := evt.Membership
	if membership == nil {
		return nil, fmt.Errorf("membership event payload is required")
	}

	t := model.NotificationTypeProjectAdded
	title := "Added to project"
	message := fmt.Sprintf("%s added you to the project %s.", evt.ActorName, membership.ScopeName)
	if membership.Scope == "organization" {
		t = model.NotificationTypeOrganizationAdded
		title = "Added to organization"
		message = fmt.Sprintf("%s added you to the organization %s.", evt.ActorName, membership.ScopeName)
	}

	entityID := membership.ScopeID
	return []Draft{{
		Recipient:  membership.MemberID,
		Type:       t,
		Priority:   model.PriorityMedium,
		Title:      title,
		Message:    message,
		EntityType: membership.Scope,
		EntityID:   &entityID,
		Payload: model.MembershipPayload{
			ScopeID:   membership.ScopeID,
			ScopeName: membership.ScopeName,
			Scope:     membership.Scope,
			Role:      membership.Role,
			AddedBy:   evt.ActorID,
		},
	}}, nil
}

// excerpt shortens a comment body for the notification message, cutting on a
// rune boundary so multi-byte text never ends up as broken UTF-8.
func excerpt(body string) string {
	const max = 140
	if utf8.RuneCountInString(body) <= max {
		return body
	}
	runes := []rune(body)
	return string(runes[:max]) + "…"
}
