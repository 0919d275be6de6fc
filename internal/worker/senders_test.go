package worker

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebeam/notify-service/internal/model"
	apperrors "github.com/sitebeam/notify-service/pkg/errors"
	"github.com/sitebeam/notify-service/pkg/security"
)

type fakeEmailTransport struct {
	sent []*model.EmailContent
}

func (f *fakeEmailTransport) Send(_ context.Context, content *model.EmailContent) (string, error) {
	f.sent = append(f.sent, content)
	return "smtp-msg-1", nil
}

type fakePushTransport struct {
	tokens []string
}

func (f *fakePushTransport) Send(_ context.Context, token string, _ *model.PushContent) (string, error) {
	f.tokens = append(f.tokens, token)
	return "push-msg-1", nil
}

func TestEmailTaskSender(t *testing.T) {
	payload, err := model.EncodePayloadJSON(&model.EmailContent{
		To:      "pm@example.com",
		Subject: "Task assigned to you: Pour foundation",
	})
	require.NoError(t, err)

	transport := &fakeEmailTransport{}
	sender := NewEmailTaskSender(transport)

	messageID, err := sender.Send(context.Background(), &model.DeliveryTask{ID: uuid.New(), Payload: payload})
	require.NoError(t, err)
	assert.Equal(t, "smtp-msg-1", messageID)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, "pm@example.com", transport.sent[0].To)
}

func TestEmailTaskSenderCorruptPayload(t *testing.T) {
	sender := NewEmailTaskSender(&fakeEmailTransport{})
	_, err := sender.Send(context.Background(), &model.DeliveryTask{ID: uuid.New(), Payload: []byte("not json")})
	assert.True(t, apperrors.IsPermanent(err))
}

func TestPushTaskSenderDecryptsToken(t *testing.T) {
	encryptor, err := security.NewAESEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	encrypted, err := security.EncryptString(encryptor, "device-token-plain")
	require.NoError(t, err)

	payload, err := model.EncodePayloadJSON(&model.PushContent{Title: "Task updated"})
	require.NoError(t, err)

	transport := &fakePushTransport{}
	sender := NewPushTaskSender(transport, encryptor)

	messageID, err := sender.Send(context.Background(), &model.DeliveryTask{
		ID:        uuid.New(),
		Recipient: encrypted,
		Payload:   payload,
	})
	require.NoError(t, err)
	assert.Equal(t, "push-msg-1", messageID)
	require.Len(t, transport.tokens, 1)
	assert.Equal(t, "device-token-plain", transport.tokens[0])
}

func TestPushTaskSenderUndecryptableToken(t *testing.T) {
	encryptor, err := security.NewAESEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	payload, err := model.EncodePayloadJSON(&model.PushContent{Title: "Task updated"})
	require.NoError(t, err)

	sender := NewPushTaskSender(&fakePushTransport{}, encryptor)
	_, err = sender.Send(context.Background(), &model.DeliveryTask{
		ID:        uuid.New(),
		Recipient: "garbage",
		Payload:   payload,
	})
	assert.True(t, apperrors.IsPermanent(err))
}
