package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebeam/notify-service/internal/config"
	"github.com/sitebeam/notify-service/internal/model"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) Sender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGatewaySender(config.PushConfig{
		GatewayURL: srv.URL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
	})
}

func TestGatewaySenderSuccess(t *testing.T) {
	var gotReq sendRequest
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/send", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(sendResponse{MessageID: "gw-123"})
	})

	messageID, err := sender.Send(context.Background(), "tok-1", &model.PushContent{
		Platform: "ios",
		Title:    "Approval requested",
		Body:     "Dana requested your approval.",
		Data:     map[string]string{"type": "approval_requested"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gw-123", messageID)
	assert.Equal(t, "tok-1", gotReq.Token)
	assert.Equal(t, "ios", gotReq.Platform)
}

func TestGatewaySenderEndpointGone(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := sender.Send(context.Background(), "tok-1", &model.PushContent{Title: "x"})
		require.Error(t, err)
		assert.True(t, apperrors.IsPermanent(err), "status %d", status)
	}
}

func TestGatewaySenderBadRequestIsPermanent(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(sendResponse{Error: "token malformed"})
	})

	_, err := sender.Send(context.Background(), "tok-1", &model.PushContent{Title: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsPermanent(err))
	assert.Contains(t, err.Error(), "token malformed")
}

func TestGatewaySenderServerErrorIsTransient(t *testing.T) {
	sender := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := sender.Send(context.Background(), "tok-1", &model.PushContent{Title: "x"})
	require.Error(t, err)
	assert.False(t, apperrors.IsPermanent(err))
}

func TestGatewaySenderUnreachableIsTransient(t *testing.T) {
	sender := NewGatewaySender(config.PushConfig{
		GatewayURL: "http://127.0.0.1:1",
		Timeout:    time.Second,
	})

	_, err := sender.Send(context.Background(), "tok-1", &model.PushContent{Title: "x"})
	require.Error(t, err)
	assert.False(t, apperrors.IsPermanent(err))
}
