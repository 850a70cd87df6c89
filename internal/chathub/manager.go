package chathub

import (
	"chatview/backend/internal/config"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoSession is returned by a push when the user has no connection on
	// this instance and no relay is configured.
	ErrNoSession = errors.New("no live session")
	// ErrSendBufferFull is returned when a slow client cannot take more frames.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Relay forwards frames to users connected to other instances.
type Relay interface {
	Publish(ctx context.Context, userID string, frame models.OutboundFrame) error
}

// Hub is the registry of live sessions on this instance. One session per
// user: registering a new session for a user replaces the previous mapping.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]Client // sessionID -> client
	users    map[string]string // userID -> sessionID

	relay Relay
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]Client),
		users:    make(map[string]string),
	}
}

// SetRelay enables cross-instance delivery.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

// Register adds c and makes it the user's current session.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.users[c.GetUserID()]; ok && prev != c.GetSessionID() {
		logging.L().Debug().
			Str(logging.FieldUserID, c.GetUserID()).
			Str(logging.FieldSessionID, prev).
			Msg("session superseded")
	}
	h.sessions[c.GetSessionID()] = c
	h.users[c.GetUserID()] = c.GetSessionID()
}

// Unregister removes c and closes its send channel. It reports false when c
// was not registered.
func (h *Hub) Unregister(c Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[c.GetSessionID()]; !ok {
		return false
	}
	delete(h.sessions, c.GetSessionID())
	if h.users[c.GetUserID()] == c.GetSessionID() {
		delete(h.users, c.GetUserID())
	}
	c.Close()
	return true
}

// HasSession reports whether userID has a live session on this instance.
func (h *Hub) HasSession(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

// SessionCount returns the number of registered connections.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Push delivers a chat message on the user's per-chatview destination.
func (h *Hub) Push(ctx context.Context, userID, chatViewID string, payload models.DeliveryPayload) error {
	return h.deliver(ctx, userID, models.OutboundFrame{
		Type:        models.FrameMessage,
		Destination: config.ChatViewDestinationPrefix + chatViewID,
		Payload:     payload,
	})
}

// PushNotification delivers a system notification on the notification destination.
func (h *Hub) PushNotification(ctx context.Context, userID string, n models.SystemNotification) error {
	return h.deliver(ctx, userID, models.OutboundFrame{
		Type:        models.FrameSystemNotification,
		Destination: config.NotificationDestination,
		Payload:     n,
	})
}

func (h *Hub) deliver(ctx context.Context, userID string, frame models.OutboundFrame) error {
	err := h.DeliverLocal(userID, frame)
	if !errors.Is(err, ErrNoSession) {
		return err
	}

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	// Succeeds once another instance receives the frame, whether or not it
	// holds the session.
	return relay.Publish(ctx, userID, frame)
}

// DeliverLocal writes frame to the user's session on this instance without
// blocking.
func (h *Hub) DeliverLocal(userID string, frame models.OutboundFrame) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sid, ok := h.users[userID]
	if !ok {
		return ErrNoSession
	}
	return send(h.sessions[sid], frame)
}

// SendToSession writes frame to one specific connection, e.g. an error reply.
func (h *Hub) SendToSession(sessionID string, frame models.OutboundFrame) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.sessions[sessionID]
	if !ok {
		return ErrNoSession
	}
	return send(c, frame)
}

// send must be called with h.mu held so Unregister cannot close the channel
// underneath it.
func send(c Client, frame models.OutboundFrame) error {
	select {
	case c.GetSendChannel() <- frame:
		return nil
	default:
		return fmt.Errorf("session %s: %w", c.GetSessionID(), ErrSendBufferFull)
	}
}
