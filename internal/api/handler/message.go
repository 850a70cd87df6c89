package handler

import (
	"chatview/backend/internal/identity"
	"time"

	"github.com/gin-gonic/gin"
)

type postMessageRequest struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// PostMessage is the HTTP entry point to the router.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.Router.PostMessage(c.Request.Context(), req.Text, c.Param("id"), req.Timestamp, identity.Principal{UserID: GetUserID(c)})
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, res)
}

// FullSync returns the chatview history and discards the caller's queue.
func (h *Handler) FullSync(c *gin.Context) {
	msgs, err := h.Router.FullSync(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, msgs)
}

// IncrementalSync drains what was queued for the caller.
func (h *Handler) IncrementalSync(c *gin.Context) {
	msgs, err := h.Router.IncrementalSync(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, msgs)
}
