// Package middleware provides request middleware for the HTTP layer.
package middleware

import (
	"net/http"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/gin-gonic/gin"
)

// Header names for the identifier pair. The short forms are accepted on
// requests for compatibility; responses always echo the canonical names.
const (
	HeaderGuestID       = "X-Eco-Guest-Id"
	HeaderGuestIDAlt    = "X-Guest-Id"
	HeaderSessionID     = "X-Eco-Session-Id"
	HeaderSessionIDAlt  = "X-Session-Id"
	ContextGuestIDKey   = "guestId"
	ContextSessionIDKey = "sessionId"
	ContextIdentityKey  = "identity"
)

// headerHint returns the first non-empty value among the canonical and
// alternate header names.
func headerHint(c *gin.Context, canonical, alt string) string {
	if v := c.GetHeader(canonical); v != "" {
		return v
	}
	return c.GetHeader(alt)
}

// IdentityMiddleware resolves the guest/session identifier pair for every
// request, echoing the resolved pair back on the response so clients can
// remember it.
func IdentityMiddleware(identity *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolved, err := identity.Ensure(
			headerHint(c, HeaderGuestID, HeaderGuestIDAlt),
			headerHint(c, HeaderSessionID, HeaderSessionIDAlt),
		)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "identity resolution failed"})
			return
		}

		c.Set(ContextGuestIDKey, resolved.GuestID)
		c.Set(ContextSessionIDKey, resolved.SessionID)
		c.Set(ContextIdentityKey, resolved)

		c.Header(HeaderGuestID, resolved.GuestID)
		c.Header(HeaderSessionID, resolved.SessionID)

		c.Next()
	}
}

// GuestID returns the resolved guest id for the request.
func GuestID(c *gin.Context) string {
	return c.GetString(ContextGuestIDKey)
}

// SessionID returns the resolved session id for the request.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionIDKey)
}

// Identity returns the full resolved identity for the request.
func Identity(c *gin.Context) *services.Identity {
	if v, ok := c.Get(ContextIdentityKey); ok {
		if id, ok := v.(*services.Identity); ok {
			return id
		}
	}
	return nil
}
