package handler

import (
	"net/http"

	"github.com/doease/doease/internal/dto"
	"github.com/doease/doease/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextUserKey is the gin context key holding the current DisplayUser.
	ContextUserKey = "current_user"
	// RequestIDHeader carries the correlation id on responses.
	RequestIDHeader = "X-Request-ID"
)

// RequireUser rejects requests until the bootstrap has resolved to a
// signed-in user, and stashes that user in the request context.
func RequireUser(boot *session.Bootstrap) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := boot.Snapshot()

		if snap.Loading {
			c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
				Error:   "Unavailable",
				Message: "Session bootstrap still in progress",
			})
			c.Abort()
			return
		}

		if snap.CurrentUser == nil {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Sign in to access this resource",
			})
			c.Abort()
			return
		}

		c.Set(ContextUserKey, snap.CurrentUser)
		c.Next()
	}
}

// RequestIDMiddleware tags every request with a correlation id, honoring
// one supplied by the caller.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}
