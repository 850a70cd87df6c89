package chathub_test

import (
	"chatview/backend/internal/chathub"
	"chatview/backend/internal/config"
	"chatview/backend/internal/models"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterUnregister(t *testing.T) {
	hub := chathub.NewHub()
	clientA := newMockClient("user_A", "s1")

	hub.Register(clientA)
	assert.True(t, hub.HasSession("user_A"))
	assert.Equal(t, 1, hub.SessionCount())

	assert.True(t, hub.Unregister(clientA))
	assert.False(t, hub.HasSession("user_A"))
	assert.True(t, clientA.isClosed())

	assert.False(t, hub.Unregister(clientA), "second unregister is a no-op")
}

func TestHub_NewSessionSupersedesOld(t *testing.T) {
	ctx := context.Background()
	hub := chathub.NewHub()
	old := newMockClient("user_A", "s1")
	fresh := newMockClient("user_A", "s2")

	hub.Register(old)
	hub.Register(fresh)

	require.NoError(t, hub.Push(ctx, "user_A", "c1", models.DeliveryPayload{Text: "hi"}))
	_, ok := old.next()
	assert.False(t, ok, "old session receives nothing")
	frame, ok := fresh.next()
	require.True(t, ok)
	assert.Equal(t, models.FrameMessage, frame.Type)
	assert.Equal(t, config.ChatViewDestinationPrefix+"c1", frame.Destination)

	// The stale session going away keeps the new one registered.
	hub.Unregister(old)
	assert.True(t, hub.HasSession("user_A"))
}

func TestHub_PushWithoutSession(t *testing.T) {
	hub := chathub.NewHub()

	err := hub.Push(context.Background(), "ghost", "c1", models.DeliveryPayload{})

	assert.ErrorIs(t, err, chathub.ErrNoSession)
}

func TestHub_PushFallsBackToRelay(t *testing.T) {
	ctx := context.Background()
	hub := chathub.NewHub()
	relay := new(MockRelay)
	hub.SetRelay(relay)
	relay.On("Publish", "remote", mock.MatchedBy(func(f models.OutboundFrame) bool {
		return f.Type == models.FrameSystemNotification && f.Destination == config.NotificationDestination
	})).Return(nil).Once()

	err := hub.PushNotification(ctx, "remote", models.SystemNotification{Text: "x"})

	require.NoError(t, err)
	relay.AssertExpectations(t)
}

func TestHub_RelayErrorPropagates(t *testing.T) {
	hub := chathub.NewHub()
	relay := new(MockRelay)
	hub.SetRelay(relay)
	relay.On("Publish", "remote", mock.Anything).Return(errors.New("redis down"))

	err := hub.Push(context.Background(), "remote", "c1", models.DeliveryPayload{})

	assert.EqualError(t, err, "redis down")
}

func TestHub_SlowClient(t *testing.T) {
	ctx := context.Background()
	hub := chathub.NewHub()
	c := newMockClient("user_A", "s1")
	hub.Register(c)

	for i := 0; i < cap(c.send); i++ {
		require.NoError(t, hub.Push(ctx, "user_A", "c1", models.DeliveryPayload{}))
	}
	err := hub.Push(ctx, "user_A", "c1", models.DeliveryPayload{})

	assert.ErrorIs(t, err, chathub.ErrSendBufferFull)
}

func TestHub_SendToSession(t *testing.T) {
	hub := chathub.NewHub()
	c := newMockClient("user_A", "s1")
	hub.Register(c)

	require.NoError(t, hub.SendToSession("s1", models.OutboundFrame{Type: models.FrameError}))
	assert.ErrorIs(t, hub.SendToSession("nope", models.OutboundFrame{}), chathub.ErrNoSession)

	frame, ok := c.next()
	require.True(t, ok)
	assert.Equal(t, models.FrameError, frame.Type)
}
