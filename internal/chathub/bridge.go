package chathub

import (
	"chatview/backend/internal/config"
	"chatview/backend/internal/errs"
	"chatview/backend/internal/identity"
	"chatview/backend/internal/localization"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"chatview/backend/internal/router"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PresenceTracker is the presence store as seen by the bridge.
type PresenceTracker interface {
	SetOnline(ctx context.Context, userID, sessionID string) (uint64, error)
	SetOfflineBySession(ctx context.Context, sessionID string, token uint64) (bool, error)
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// MembershipChecker audits subscriptions.
type MembershipChecker interface {
	IsMember(ctx context.Context, chatViewID, userID string) (bool, error)
}

// MessagePoster is the inbound entry point for "send" frames.
type MessagePoster interface {
	PostMessage(ctx context.Context, text, chatViewID string, timestamp time.Time, principal identity.Principal) (*router.PostResult, error)
}

// Bridge turns transport signals into presence updates and pushes system
// notifications to connected members.
type Bridge struct {
	hub       *Hub
	presence  PresenceTracker
	members   MembershipChecker
	poster    MessagePoster
	localizer *localization.Localizer
	lang      string
	now       func() time.Time
}

func NewBridge(hub *Hub, p PresenceTracker, poster MessagePoster, localizer *localization.Localizer) *Bridge {
	return &Bridge{
		hub:       hub,
		presence:  p,
		poster:    poster,
		localizer: localizer,
		lang:      localization.DefaultLanguage,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetMembershipChecker wires the membership manager in after construction;
// the manager itself needs the bridge as its notifier.
func (b *Bridge) SetMembershipChecker(m MembershipChecker) {
	b.members = m
}

// OnConnect registers the session and marks the user online.
func (b *Bridge) OnConnect(ctx context.Context, c Client) error {
	b.hub.Register(c)

	token, err := b.presence.SetOnline(ctx, c.GetUserID(), c.GetSessionID())
	if err != nil {
		b.hub.Unregister(c)
		return fmt.Errorf("set online %s: %w", c.GetUserID(), err)
	}
	c.SetConnectionToken(token)

	logging.Ctx(ctx).Info().
		Str(logging.FieldUserID, c.GetUserID()).
		Str(logging.FieldSessionID, c.GetSessionID()).
		Msg("client connected")
	return nil
}

// OnDisconnect unregisters the session and clears presence if this session
// is still the user's current one.
func (b *Bridge) OnDisconnect(ctx context.Context, c Client) {
	b.hub.Unregister(c)

	l := logging.Ctx(ctx).With().
		Str(logging.FieldUserID, c.GetUserID()).
		Str(logging.FieldSessionID, c.GetSessionID()).
		Logger()

	cleared, err := b.presence.SetOfflineBySession(ctx, c.GetSessionID(), c.ConnectionToken())
	if err != nil {
		l.Error().Err(err).Msg("failed to clear presence")
		return
	}
	l.Info().Bool("presence_cleared", cleared).Msg("client disconnected")
}

// OnSubscribe audits a subscription to a chatview destination. The hub only
// ever writes to the client's own connection, so a failed check is logged
// and not enforced.
func (b *Bridge) OnSubscribe(ctx context.Context, c Client, destination string) {
	l := logging.Ctx(ctx).With().
		Str(logging.FieldUserID, c.GetUserID()).
		Str("destination", destination).
		Logger()

	if destination == config.NotificationDestination {
		return
	}
	chatViewID, ok := strings.CutPrefix(destination, config.ChatViewDestinationPrefix)
	if !ok || chatViewID == "" {
		l.Warn().Msg("subscription to unknown destination")
		return
	}
	if b.members == nil {
		return
	}

	member, err := b.members.IsMember(ctx, chatViewID, c.GetUserID())
	if err != nil {
		l.Warn().Err(err).Msg("subscription audit failed")
		return
	}
	if !member {
		l.Warn().Msg("subscription by non-member")
	}
}

// NotifyMembershipAdded pushes a system notification when the user is online
// and has a live session here. Otherwise it is skipped; notifications are
// never queued.
func (b *Bridge) NotifyMembershipAdded(ctx context.Context, userID string, cv *models.ChatView) {
	l := logging.Ctx(ctx).With().
		Str(logging.FieldUserID, userID).
		Str(logging.FieldChatViewID, cv.ID).
		Logger()

	online, err := b.presence.IsOnline(ctx, userID)
	if err != nil {
		l.Warn().Err(err).Msg("presence lookup failed, notification skipped")
		return
	}
	if !online || !b.hub.HasSession(userID) {
		l.Debug().Msg("user not connected, notification skipped")
		return
	}

	n := models.SystemNotification{
		Kind:       models.NotificationMembershipAdded,
		ChatViewID: cv.ID,
		Text:       b.text(localization.KeyMembershipAdded, cv.Name),
		CreatedAt:  b.now(),
	}
	if err := b.hub.PushNotification(ctx, userID, n); err != nil {
		l.Warn().Err(err).Msg("failed to push notification")
	}
}

// HandleFrame dispatches one inbound websocket frame.
func (b *Bridge) HandleFrame(ctx context.Context, c Client, raw []byte) {
	var f models.InboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		b.replyError(ctx, c, "", fmt.Errorf("%w: malformed frame", errs.ErrValidation))
		return
	}

	switch f.Type {
	case models.FrameSend:
		_, err := b.poster.PostMessage(ctx, f.Text, f.ChatViewID, f.Timestamp, identity.Principal{UserID: c.GetUserID()})
		if err != nil {
			b.replyError(ctx, c, config.ChatViewDestinationPrefix+f.ChatViewID, err)
		}
	case models.FrameSubscribe:
		b.OnSubscribe(ctx, c, f.Destination)
	default:
		b.replyError(ctx, c, "", fmt.Errorf("%w: unknown frame type %q", errs.ErrValidation, f.Type))
	}
}

// errorPayload is the body of an error frame.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (b *Bridge) replyError(ctx context.Context, c Client, destination string, err error) {
	logging.Ctx(ctx).Warn().Err(err).Str(logging.FieldUserID, c.GetUserID()).Msg("rejected frame")

	frame := models.OutboundFrame{
		Type:        models.FrameError,
		Destination: destination,
		Payload:     errorPayload{Code: errs.Code(err), Message: err.Error()},
	}
	if sendErr := b.hub.SendToSession(c.GetSessionID(), frame); sendErr != nil && !errors.Is(sendErr, ErrNoSession) {
		logging.Ctx(ctx).Warn().Err(sendErr).Msg("failed to send error frame")
	}
}

func (b *Bridge) text(key string, args ...any) string {
	if b.localizer == nil {
		return key
	}
	return b.localizer.Format(b.lang, key, args...)
}
