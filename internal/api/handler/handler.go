package handler

import (
	"chatview/backend/internal/chathub"
	"chatview/backend/internal/config"
	"chatview/backend/internal/identity"
	"chatview/backend/internal/membership"
	"chatview/backend/internal/router"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler exposes the chatview core over HTTP and websocket.
type Handler struct {
	Members  *membership.Manager
	Router   *router.Router
	Bridge   *chathub.Bridge
	Resolver identity.Resolver
	WS       config.WebSocketConfig
}

func NewHandler(m *membership.Manager, r *router.Router, b *chathub.Bridge, resolver identity.Resolver, ws config.WebSocketConfig) *Handler {
	return &Handler{Members: m, Router: r, Bridge: b, Resolver: resolver, WS: ws}
}

// RegisterRoutes mounts every route on engine.
func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api", AuthMiddleware(h.Resolver))
	{
		api.GET("/ws", h.ServeWebSocket)

		api.POST("/chatviews", h.CreateChatView)
		api.GET("/chatviews", h.ListChatViews)

		api.GET("/chatviews/:id/members", h.ListMembers)
		api.POST("/chatviews/:id/members", h.AddMember)
		api.DELETE("/chatviews/:id/members/:userId", h.RemoveMember)

		api.GET("/chatviews/:id/messages", h.FullSync)
		api.POST("/chatviews/:id/messages", h.PostMessage)
		api.GET("/chatviews/:id/queue", h.IncrementalSync)
	}
}
