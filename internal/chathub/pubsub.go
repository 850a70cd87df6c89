package chathub

import (
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// relayEnvelope is what travels over the relay channel.
type relayEnvelope struct {
	Origin string               `json:"origin"`
	UserID string               `json:"userId"`
	Frame  models.OutboundFrame `json:"frame"`
}

// RedisRelay forwards live frames between instances over Redis Pub/Sub.
// Every instance listens; the one holding the user's session delivers.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	hub      *Hub
	instance string

	listening atomic.Bool
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{
		client:   client,
		channel:  channel,
		hub:      hub,
		instance: uuid.New().String(),
	}
}

// Publish hands frame to whichever instance holds userID's session. It reports
// ErrNoSession when no other instance is listening. A listener that turns out
// not to hold the session cannot be detected here.
func (r *RedisRelay) Publish(ctx context.Context, userID string, frame models.OutboundFrame) error {
	body, err := json.Marshal(relayEnvelope{Origin: r.instance, UserID: userID, Frame: frame})
	if err != nil {
		return err
	}
	receivers, err := r.client.Publish(ctx, r.channel, body).Result()
	if err != nil {
		return err
	}
	// Our own listener is counted but skips frames it published.
	if r.listening.Load() {
		receivers--
	}
	if receivers <= 0 {
		return fmt.Errorf("user %s: no relay listeners: %w", userID, ErrNoSession)
	}
	return nil
}

// Listen subscribes to the relay channel and delivers to local sessions
// until ctx is cancelled.
func (r *RedisRelay) Listen(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before consuming.
	if _, err := pubsub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	r.listening.Store(true)
	defer r.listening.Store(false)
	logging.Ctx(ctx).Info().Str("channel", r.channel).Msg("relay listener started")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("error unmarshalling relay message")
		return
	}
	if env.Origin == r.instance {
		return
	}

	err := r.hub.DeliverLocal(env.UserID, env.Frame)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoSession):
		// Another instance holds the session, or nobody does.
	default:
		logging.Ctx(ctx).Warn().Err(err).Str(logging.FieldUserID, env.UserID).Msg("relay delivery failed")
	}
}
