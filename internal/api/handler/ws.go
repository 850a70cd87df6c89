package handler

import (
	"chatview/backend/internal/chathub"
	"chatview/backend/internal/logging"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is not checked; access is gated by the token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the authenticated request to a live connection.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	// The connection outlives the request; keep its values, drop its cancellation.
	ctx := context.WithoutCancel(c.Request.Context())
	client := chathub.NewWebSocketClient(ctx, conn, GetUserID(c), h.Bridge, h.WS)

	if err := h.Bridge.OnConnect(client.Context(), client); err != nil {
		logging.Ctx(client.Context()).Error().Err(err).Msg("failed to connect client")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "presence unavailable"))
		conn.Close()
		return
	}

	client.Run()
}
