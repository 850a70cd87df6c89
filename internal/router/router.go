// Package router persists posted messages and fans them out to the members
// of a chatview: a live push for members that are online, a durable enqueue
// for members that are not.
package router

import (
	"chatview/backend/internal/errs"
	"chatview/backend/internal/identity"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"chatview/backend/internal/storage"
	"context"
	"fmt"
	"strings"
	"time"
)

// DeliveryState is the outcome of one delivery attempt to one member.
type DeliveryState string

const (
	DeliveredLive  DeliveryState = "DELIVERED_LIVE"
	Queued         DeliveryState = "QUEUED"
	DeliveryFailed DeliveryState = "DELIVERY_FAILED"
)

// Pusher is the live channel to a connected user.
type Pusher interface {
	Push(ctx context.Context, userID, chatViewID string, payload models.DeliveryPayload) error
}

// Presence answers the routing question for one member.
type Presence interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// Queues is the durable side of delivery and sync.
type Queues interface {
	Enqueue(ctx context.Context, chatViewID, userID string, payload models.DeliveryPayload) error
	DrainAndReturn(ctx context.Context, chatViewID, userID string) ([]models.DeliveryPayload, error)
	DrainAndDiscard(ctx context.Context, chatViewID, userID string) int
}

// PostResult is a persisted message and what happened to each recipient.
// The sender never appears in Outcomes.
type PostResult struct {
	Message  *models.Message          `json:"message"`
	Outcomes map[string]DeliveryState `json:"outcomes"`
}

type Router struct {
	store    storage.Storage
	presence Presence
	queues   Queues
	pusher   Pusher
	resolver identity.Resolver
	now      func() time.Time
}

func NewRouter(s storage.Storage, p Presence, q Queues, pusher Pusher, resolver identity.Resolver) *Router {
	return &Router{
		store:    s,
		presence: p,
		queues:   q,
		pusher:   pusher,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetPusher replaces the live channel. The hub is built after the router, so
// cmd wires it in late.
func (r *Router) SetPusher(p Pusher) {
	r.pusher = p
}

// PostMessage persists text as a message from the principal and delivers it
// to every other member. A zero timestamp means now. Delivery failures are
// reported per member and never fail the post.
func (r *Router) PostMessage(ctx context.Context, text, chatViewID string, timestamp time.Time, principal identity.Principal) (*PostResult, error) {
	senderID, err := r.resolver.Resolve(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("%w: sender unresolved: %w", errs.ErrUnauthenticated, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message text is empty", errs.ErrValidation)
	}

	cv, err := r.store.FindChatViewWithMembers(ctx, chatViewID)
	if err != nil {
		return nil, err
	}
	sender := cv.Member(senderID)
	if sender == nil {
		return nil, fmt.Errorf("user %s posting to chatview %s: %w", senderID, chatViewID, errs.ErrForbidden)
	}

	createdAt := timestamp.UTC()
	if timestamp.IsZero() {
		createdAt = r.now()
	}
	msg := &models.Message{
		Text:       text,
		SenderID:   senderID,
		ChatViewID: chatViewID,
		CreatedAt:  createdAt,
	}
	if err := r.store.WithTx(ctx, func(tx storage.Storage) error {
		return tx.SaveMessage(ctx, msg)
	}); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}

	l := logging.Ctx(ctx).With().
		Str(logging.FieldChatViewID, chatViewID).
		Str(logging.FieldMessageID, msg.ID).
		Logger()
	ctx = logging.WithLogger(ctx, l)

	payload := models.NewDeliveryPayload(msg, sender.Name())
	outcomes := make(map[string]DeliveryState, len(cv.Members))
	for _, memberID := range cv.MemberIDs() {
		if memberID == senderID {
			continue
		}
		outcomes[memberID] = r.deliver(ctx, memberID, payload)
	}

	l.Info().Str(logging.FieldUserID, senderID).Int("recipients", len(outcomes)).Msg("message posted")
	return &PostResult{Message: msg, Outcomes: outcomes}, nil
}

// deliver makes one attempt for one member. Nothing here is retried; a
// failed member recovers the message through history.
func (r *Router) deliver(ctx context.Context, memberID string, payload models.DeliveryPayload) DeliveryState {
	l := logging.Ctx(ctx).With().Str(logging.FieldMemberID, memberID).Logger()

	online, err := r.presence.IsOnline(ctx, memberID)
	if err != nil {
		l.Error().Err(err).Str(logging.FieldOutcome, string(DeliveryFailed)).Msg("presence lookup failed")
		return DeliveryFailed
	}

	if online {
		if r.pusher == nil {
			l.Error().Str(logging.FieldOutcome, string(DeliveryFailed)).Msg("no live channel configured")
			return DeliveryFailed
		}
		// A push relayed to another instance counts as live once some
		// instance received it; the relay fails it when none is listening.
		if err := r.pusher.Push(ctx, memberID, payload.ChatViewID, payload); err != nil {
			l.Error().Err(err).Str(logging.FieldOutcome, string(DeliveryFailed)).Msg("live push failed")
			return DeliveryFailed
		}
		l.Debug().Str(logging.FieldOutcome, string(DeliveredLive)).Msg("delivered")
		return DeliveredLive
	}

	if err := r.queues.Enqueue(ctx, payload.ChatViewID, memberID, payload); err != nil {
		l.Error().Err(err).Str(logging.FieldOutcome, string(DeliveryFailed)).Msg("enqueue failed")
		return DeliveryFailed
	}
	l.Debug().Str(logging.FieldOutcome, string(Queued)).Msg("delivered")
	return Queued
}
