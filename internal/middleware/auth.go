package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"spark-service/internal/auth"
	"spark-service/internal/models"
	"spark-service/internal/repositories"
)

// Context keys set by AuthMiddleware.
const (
	CtxUserID = "userID"
	CtxActor  = "actor"
)

// AuthMiddleware validates the session bearer token and resolves the
// acting identity to its canonical user record. Downstream code reads
// one snapshot and never cares how the caller was identified.
func AuthMiddleware(sessions *auth.Authenticator, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := sessions.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve identity"})
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxActor, user.Snapshot())
		c.Next()
	}
}

// ActorFrom pulls the resolved acting identity off the context.
func ActorFrom(c *gin.Context) models.UserSnapshot {
	if v, ok := c.Get(CtxActor); ok {
		if actor, ok := v.(models.UserSnapshot); ok {
			return actor
		}
	}
	return models.UserSnapshot{ID: c.GetInt(CtxUserID)}
}
