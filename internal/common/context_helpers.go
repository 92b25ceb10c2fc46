// File: internal/common/context_helpers.go
package common

import (
	"strings"

	"gatortrader_backend/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the header name for authorization token
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens
	AuthorizationTypeBearer = "Bearer"
	// SessionKey is the gin context key holding the *session.Session
	SessionKey = "session"
)

// GetTokenFromContext retrieves the bearer token string from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// SetSession attaches s to both the gin context and the request context.
func SetSession(c *gin.Context, s *session.Session) {
	c.Set(SessionKey, s)
	c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), s))
}

// GetSessionFromContext returns the authenticated session, or nil.
func GetSessionFromContext(c *gin.Context) *session.Session {
	val, exists := c.Get(SessionKey)
	if !exists {
		return nil
	}
	s, _ := val.(*session.Session)
	return s
}

// GetUserIDFromContext retrieves the user ID from the Gin context.
// Returns uuid.Nil if not found.
func GetUserIDFromContext(c *gin.Context) uuid.UUID {
	if s := GetSessionFromContext(c); s != nil {
		return s.UserID
	}
	return uuid.Nil
}

// RequireUserID returns the caller's ID or ErrUnauthorized.
func RequireUserID(c *gin.Context) (uuid.UUID, error) {
	id := GetUserIDFromContext(c)
	if id == uuid.Nil {
		return uuid.Nil, ErrUnauthorized.WithDetails("No authenticated session.")
	}
	return id, nil
}
