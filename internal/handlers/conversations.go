package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"spark-service/internal/middleware"
	"spark-service/internal/service"
)

// ConversationHandler manages conversation and message endpoints.
type ConversationHandler struct {
	messages *service.MessageService
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(messages *service.MessageService) *ConversationHandler {
	return &ConversationHandler{messages: messages}
}

// Create opens (or returns) the conversation with another user.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req struct {
		ParticipantUserID int `json:"participant_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	conv, err := h.messages.EnsureConversation(c.Request.Context(), actor, req.ParticipantUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	counts, err := h.messages.UnreadCounts(c.Request.Context(), actor.ID, []int{conv.ID})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv.Summarize(actor.ID, counts[conv.ID])})
}

// List returns the caller's conversations with unread counts.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetInt(middleware.CtxUserID)

	summaries, err := h.messages.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// GetMessages returns one chronological page of a conversation.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		cursor, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before cursor"})
			return
		}
		before = &cursor
	}

	userID := c.GetInt(middleware.CtxUserID)
	msgs, err := h.messages.ListMessages(c.Request.Context(), conversationID, userID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and triggers fan-out.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	msg, err := h.messages.Send(c.Request.Context(), conversationID, actor, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkRead marks everything unread in the conversation as read by the
// caller.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	userID := c.GetInt(middleware.CtxUserID)
	count, err := h.messages.MarkRead(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated_count": count})
}
