package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sitebeam/notify-service/internal/config"
	"github.com/sitebeam/notify-service/internal/model"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
)

// Sender delivers one push payload to an opaque endpoint token. The gateway
// protocol is a plain JSON POST; 404/410 responses mean the endpoint is
// permanently gone and the device registration must be disabled.
type Sender interface {
	Send(ctx context.Context, token string, content *model.PushContent) (string, error)
}

type gatewaySender struct {
	client     *http.Client
	gatewayURL string
	apiKey     string
}

func NewGatewaySender(cfg config.PushConfig) Sender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &gatewaySender{
		client:     &http.Client{Timeout: timeout},
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.APIKey,
	}
}

type sendRequest struct {
	Token       string            `json:"token"`
	Platform    string            `json:"platform"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	ClickAction string            `json:"click_action,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

func (s *gatewaySender) Send(ctx context.Context, token string, content *model.PushContent) (string, error) {
	body, err := json.Marshal(sendRequest{
		Token:       token,
		Platform:    content.Platform,
		Title:       content.Title,
		Body:        content.Body,
		Data:        content.Data,
		ClickAction: content.ClickAction,
	})
	if err != nil {
		return "", apperrors.Permanent("failed to encode push payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Permanent("failed to build push request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperrors.Transient("push gateway unreachable", err)
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode == http.StatusOK {
		return "", apperrors.Transient("failed to decode push response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return result.MessageID, nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return "", apperrors.Permanent(fmt.Sprintf("push endpoint gone (%d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusBadRequest:
		return "", apperrors.Permanent(fmt.Sprintf("push request rejected: %s", result.Error), nil)
	default:
		return "", apperrors.Transient(fmt.Sprintf("push gateway error (%d): %s", resp.StatusCode, result.Error), nil)
	}
}
