package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spark-service/internal/service"
)

// respondError maps service sentinels to HTTP statuses. Everything
// unrecognized is an internal error with a generic body; the cause is
// logged by gin's recovery/logging stack, not leaked to the caller.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSelfConnection),
		errors.Is(err, service.ErrSelfConversation),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrMessageTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTargetNotFound),
		errors.Is(err, service.ErrConnectionNotFound),
		errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotRecipient),
		errors.Is(err, service.ErrNotRequester),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrNotConnected):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConnectionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
