package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"github.com/sitebeam/notify-service/internal/config"
	"github.com/sitebeam/notify-service/internal/model"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
)

// Sender delivers one rendered email and returns the transport message id.
type Sender interface {
	Send(ctx context.Context, content *model.EmailContent) (string, error)
}

type smtpSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

func (s *smtpSender) Send(ctx context.Context, content *model.EmailContent) (string, error) {
	messageID := fmt.Sprintf("<%s@sitebeam>", uuid.New())

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetAddressHeader("To", content.To, content.ToName)
	m.SetHeader("Subject", content.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetBody("text/plain", content.TextBody)
	m.AddAlternative("text/html", content.HTMLBody)

	// gomail has no context support; run the blocking send in a goroutine
	// and honor the caller's deadline ourselves.
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return "", apperrors.Transient("email send timed out", ctx.Err())
	case err := <-errCh:
		if err != nil {
			return "", classify(err)
		}
	}

	return messageID, nil
}

// classify maps SMTP failures onto the transport error taxonomy. Permanent
// 5xx recipient rejections are not retried; everything else is.
func classify(err error) error {
	msg := err.Error()
	for _, code := range []string{"550", "551", "553", "501"} {
		if strings.Contains(msg, code) {
			return apperrors.Permanent("recipient rejected", err)
		}
	}
	return apperrors.Transient("email send failed", err)
}
