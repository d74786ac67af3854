package middleware

import (
	"net/http"
	"strings"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const ContextProfileKey = "profile"

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// OptionalAuthMiddleware decodes a bearer token when present and puts the
// profile in the request context. A valid token takes precedence over any
// header-supplied guest identity: the tier and lead come from the token.
// Requests without a token proceed as guests.
func OptionalAuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		profile, err := auth.ProfileFromToken(token)
		if err != nil {
			// An invalid token is treated as absent, not as an error: the
			// request still has a guest identity to fall back on.
			c.Next()
			return
		}
		c.Set(ContextProfileKey, profile)
		c.Next()
	}
}

// RequireAuthMiddleware rejects requests without a valid bearer token.
func RequireAuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		profile, err := auth.ProfileFromToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ContextProfileKey, profile)
		c.Next()
	}
}

// Profile returns the authenticated profile, or nil for guests.
func Profile(c *gin.Context) *user.Profile {
	if v, ok := c.Get(ContextProfileKey); ok {
		if p, ok := v.(*user.Profile); ok {
			return p
		}
	}
	return nil
}
