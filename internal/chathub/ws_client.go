package chathub

import (
	"chatview/backend/internal/config"
	"chatview/backend/internal/logging"
	"chatview/backend/internal/models"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketClient implements Client over a gorilla websocket connection.
type WebSocketClient struct {
	UserID    string
	SessionID string
	Conn      *websocket.Conn
	Bridge    *Bridge
	Send      chan models.OutboundFrame

	token     atomic.Uint64
	cfg       config.WebSocketConfig
	ctx       context.Context
	closeOnce sync.Once
}

// NewWebSocketClient wraps conn for userID with a fresh session id. ctx
// carries the logger and must outlive the HTTP request.
func NewWebSocketClient(ctx context.Context, conn *websocket.Conn, userID string, b *Bridge, cfg config.WebSocketConfig) *WebSocketClient {
	sessionID := uuid.New().String()
	l := logging.Ctx(ctx).With().
		Str(logging.FieldUserID, userID).
		Str(logging.FieldSessionID, sessionID).
		Logger()

	return &WebSocketClient{
		UserID:    userID,
		SessionID: sessionID,
		Conn:      conn,
		Bridge:    b,
		Send:      make(chan models.OutboundFrame, cfg.SendBuffer),
		cfg:       cfg,
		ctx:       logging.WithLogger(ctx, l),
	}
}

func (c *WebSocketClient) GetUserID() string                           { return c.UserID }
func (c *WebSocketClient) GetSessionID() string                        { return c.SessionID }
func (c *WebSocketClient) ConnectionToken() uint64                     { return c.token.Load() }
func (c *WebSocketClient) SetConnectionToken(t uint64)                 { c.token.Store(t) }
func (c *WebSocketClient) GetSendChannel() chan<- models.OutboundFrame { return c.Send }
func (c *WebSocketClient) Context() context.Context                    { return c.ctx }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// readPump decodes inbound frames until the connection fails, then signals
// the disconnect.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Bridge.OnDisconnect(c.ctx, c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Ctx(c.ctx).Warn().Err(err).Msg("error reading message")
			}
			return
		}
		c.Bridge.HandleFrame(c.ctx, c, message)
	}
}

// writePump writes frames from Send to the connection, one text message per
// frame, and keeps the connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod())

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(frame)
			if err != nil {
				logging.Ctx(c.ctx).Error().Err(err).Msg("error encoding frame")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
