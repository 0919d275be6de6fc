package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sitebeam/notify-service/internal/email"
	"github.com/sitebeam/notify-service/internal/model"
	"github.com/sitebeam/notify-service/internal/push"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/security"
)

// EmailTaskSender adapts the SMTP transport to the worker's Sender.
type EmailTaskSender struct {
	transport email.Sender
}

func NewEmailTaskSender(transport email.Sender) *EmailTaskSender {
	return &EmailTaskSender{transport: transport}
}

func (s *EmailTaskSender) Send(ctx context.Context, task *model.DeliveryTask) (string, error) {
	var content model.EmailContent
	if err := json.Unmarshal(task.Payload, &content); err != nil {
		return "", apperrors.Permanent("corrupt email task payload", err)
	}
	return s.transport.Send(ctx, &content)
}

// PushTaskSender adapts the push gateway to the worker's Sender. Task
// recipients hold the encrypted subscription token; it is decrypted only for
// the duration of the send.
type PushTaskSender struct {
	transport push.Sender
	encryptor security.Encryptor
}

func NewPushTaskSender(transport push.Sender, encryptor security.Encryptor) *PushTaskSender {
	return &PushTaskSender{transport: transport, encryptor: encryptor}
}

func (s *PushTaskSender) Send(ctx context.Context, task *model.DeliveryTask) (string, error) {
	var content model.PushContent
	if err := json.Unmarshal(task.Payload, &content); err != nil {
		return "", apperrors.Permanent("corrupt push task payload", err)
	}

	token, err := security.DecryptString(s.encryptor, task.Recipient)
	if err != nil {
		return "", apperrors.Permanent(fmt.Sprintf("undecryptable device token for task %s", task.ID), err)
	}

	return s.transport.Send(ctx, token, &content)
}
