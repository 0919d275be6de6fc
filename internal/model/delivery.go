package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusSent       DeliveryStatus = "sent"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

// DeliveryTask is one unit of outbound work for a single channel. Email and
// push tasks share the state machine and differ only in destination and
// rendered payload shape; they live in separate queue tables.
type DeliveryTask struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	NotificationID uuid.UUID       `db:"notification_id" json:"notification_id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Channel        Channel         `db:"channel" json:"channel"`
	Priority       Priority        `db:"priority" json:"priority"`
	Recipient      string          `db:"recipient" json:"recipient"`
	DeviceID       *uuid.UUID      `db:"device_id" json:"device_id,omitempty"`
	Payload        json.RawMessage `db:"payload" json:"payload"`
	Status         DeliveryStatus  `db:"status" json:"status"`
	ScheduledFor   time.Time       `db:"scheduled_for" json:"scheduled_for"`
	RetryCount     int             `db:"retry_count" json:"retry_count"`
	LastError      *string         `db:"last_error" json:"last_error,omitempty"`

	// PermanentFailure marks a terminal failure caused by the destination
	// itself (gone endpoint, rejected address); such tasks are excluded from
	// operator re-queues.
	PermanentFailure bool `db:"permanent_failure" json:"permanent_failure"`

	MessageID *string    `db:"message_id" json:"message_id,omitempty"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// EncodePayloadJSON marshals a rendered channel payload for queue storage.
func EncodePayloadJSON(v interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode delivery payload: %w", err)
	}
	return raw, nil
}

// EmailContent is the rendered payload stored on an email task.
type EmailContent struct {
	To       string `json:"to"`
	ToName   string `json:"to_name,omitempty"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

// PushContent is the rendered payload stored on a push task.
type PushContent struct {
	Platform    string            `json:"platform"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	ClickAction string            `json:"click_action,omitempty"`
}
