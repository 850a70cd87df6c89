package handler

import (
	"chatview/backend/internal/errs"
	"fmt"

	"github.com/gin-gonic/gin"
)

type createChatViewRequest struct {
	Name      string   `json:"name" binding:"required"`
	MemberIDs []string `json:"memberIds"`
}

type addMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type membersResponse struct {
	ChatViewID string   `json:"chatViewId"`
	MemberIDs  []string `json:"memberIds"`
}

// CreateChatView creates a chatview owned by the caller.
func (h *Handler) CreateChatView(c *gin.Context) {
	var req createChatViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	cv, err := h.Members.CreateChatView(c.Request.Context(), req.Name, GetUserID(c), req.MemberIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, cv)
}

// ListChatViews lists the caller's chatviews.
func (h *Handler) ListChatViews(c *gin.Context) {
	views, err := h.Members.ChatViewsFor(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, views)
}

func (h *Handler) ListMembers(c *gin.Context) {
	chatViewID := c.Param("id")
	if !h.requireMember(c, chatViewID) {
		return
	}

	ids, err := h.Members.MemberIDs(c.Request.Context(), chatViewID)
	if err != nil {
		respondError(c, err)
		return
	}
	success(c, membersResponse{ChatViewID: chatViewID, MemberIDs: ids})
}

// AddMember adds a user; the caller must be a member.
func (h *Handler) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	chatViewID := c.Param("id")
	if err := h.Members.AddMember(c.Request.Context(), chatViewID, req.UserID, GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	created(c, gin.H{"chatViewId": chatViewID, "userId": req.UserID})
}

// RemoveMember removes a user; the caller must be a member. Removing
// oneself is leaving.
func (h *Handler) RemoveMember(c *gin.Context) {
	chatViewID := c.Param("id")
	if !h.requireMember(c, chatViewID) {
		return
	}

	userID := c.Param("userId")
	if err := h.Members.RemoveMember(c.Request.Context(), chatViewID, userID); err != nil {
		respondError(c, err)
		return
	}
	success(c, gin.H{"chatViewId": chatViewID, "userId": userID})
}

// requireMember aborts the request unless the caller is a member.
func (h *Handler) requireMember(c *gin.Context, chatViewID string) bool {
	ok, err := h.Members.IsMember(c.Request.Context(), chatViewID, GetUserID(c))
	if err != nil {
		respondError(c, err)
		return false
	}
	if !ok {
		respondError(c, fmt.Errorf("chatview %s: %w", chatViewID, errs.ErrForbidden))
		return false
	}
	return true
}
