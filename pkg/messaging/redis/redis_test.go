package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitebeam/notify-service/pkg/logger"
	"github.com/sitebeam/notify-service/pkg/messaging"
)

func newTestBroker(t *testing.T) messaging.Broker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewBrokerWithClient(client, logger.Nop())
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	broker := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userID := uuid.New()
	channel := messaging.UserChannel(userID)

	msgs, err := broker.Subscribe(ctx, channel)
	require.NoError(t, err)

	// Give the subscriber goroutine time to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	payload := map[string]string{"title": "Task assigned to you"}
	require.NoError(t, broker.Publish(ctx, channel, payload))

	select {
	case raw := <-msgs:
		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "Task assigned to you", got["title"])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestSubscribeStopsOnContextCancel(t *testing.T) {
	broker := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := broker.Subscribe(ctx, "notifications:user:test")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-msgs:
		assert.False(t, open, "channel should close after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not shut down")
	}
}

func TestUserChannelNaming(t *testing.T) {
	userID := uuid.MustParse("a2b41b2c-5b96-4a5d-b5d8-04dbebf7a44a")
	assert.Equal(t, "notifications:user:a2b41b2c-5b96-4a5d-b5d8-04dbebf7a44a", messaging.UserChannel(userID))
}
