package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"spark-service/internal/auth"
	"spark-service/internal/middleware"
)

// RealtimeHandler exchanges a web session for a short-lived realtime
// token. The gateway trusts only this token, never the session itself.
type RealtimeHandler struct {
	tokens *auth.Authenticator
}

// NewRealtimeHandler builds a RealtimeHandler.
func NewRealtimeHandler(tokens *auth.Authenticator) *RealtimeHandler {
	return &RealtimeHandler{tokens: tokens}
}

// Token mints a realtime token for the authenticated caller.
func (h *RealtimeHandler) Token(c *gin.Context) {
	actor := middleware.ActorFrom(c)

	token, err := h.tokens.GenerateToken(actor.ID, actor.Handle, actor.DisplayName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Health reports liveness, including database reachability.
func Health(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
