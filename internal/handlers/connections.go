package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spark-service/internal/middleware"
	"spark-service/internal/models"
	"spark-service/internal/service"
)

// ConnectionHandler manages the spark endpoints.
type ConnectionHandler struct {
	connections *service.ConnectionService
}

// NewConnectionHandler builds a ConnectionHandler.
func NewConnectionHandler(connections *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

// Request sends a spark to another user.
func (h *ConnectionHandler) Request(c *gin.Context) {
	var req struct {
		TargetUserID int `json:"target_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	conn, state, err := h.connections.Request(c.Request.Context(), actor, req.TargetUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"connection_id": conn.ID, "state": state})
}

// Respond dispatches a PATCH action on a connection. The action tag is
// resolved here, once, into one of the four explicit operations; each
// operation enforces its own preconditions.
func (h *ConnectionHandler) Respond(c *gin.Context) {
	connectionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return
	}

	var req struct {
		Action string `json:"action" binding:"required,oneof=accept decline cancel remove"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.ActorFrom(c)
	ctx := c.Request.Context()

	switch req.Action {
	case "accept":
		conn, err := h.connections.Accept(ctx, actor, connectionID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connection_id": conn.ID, "state": models.StateConnected, "status": conn.Status})

	case "decline":
		conn, err := h.connections.Decline(ctx, actor, connectionID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connection_id": conn.ID, "state": models.StateDeclined, "status": conn.Status})

	case "cancel":
		if err := h.connections.Cancel(ctx, actor, connectionID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connection_id": connectionID, "state": models.StateNone, "status": "canceled"})

	case "remove":
		conn, err := h.connections.Remove(ctx, actor, connectionID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"connection_id": conn.ID, "state": models.StateDeclined, "status": conn.Status})
	}
}

// List returns the caller's circle plus pending sparks both ways.
func (h *ConnectionHandler) List(c *gin.Context) {
	userID := c.GetInt(middleware.CtxUserID)

	list, err := h.connections.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}
