package middleware

import (
	"errors"

	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/session"
	"gatortrader_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errNoProfile = errors.New("no profile for identity")

// AuthMiddleware verifies the bearer ID token and attaches the caller's session.
func AuthMiddleware(verifier shared.TokenVerifier, users shared.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := common.GetTokenFromContext(c)
		if token == "" {
			logger.Debug("Bearer token missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header must be 'Bearer <token>'."))
			return
		}

		sess, err := resolveSession(c, verifier, users, token)
		if err != nil {
			logger.Debug("Token rejected", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}

		common.SetSession(c, sess)
		c.Next()
	}
}

// OptionalAuthMiddleware attaches a session when a valid token is present and lets anonymous
// requests through otherwise.
func OptionalAuthMiddleware(verifier shared.TokenVerifier, users shared.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := common.GetTokenFromContext(c); token != "" {
			sess, err := resolveSession(c, verifier, users, token)
			if err == nil {
				common.SetSession(c, sess)
			} else {
				logger.Debug("Ignoring invalid optional token", zap.Error(err))
			}
		}
		c.Next()
	}
}

func resolveSession(c *gin.Context, verifier shared.TokenVerifier, users shared.Service, token string) (*session.Session, error) {
	ctx := c.Request.Context()
	identity, err := verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := users.GetUserByFirebaseUID(ctx, identity.UID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, errNoProfile
		}
		return nil, err
	}
	return &session.Session{
		UserID:      u.ID,
		FirebaseUID: identity.UID,
		Email:       u.Email,
		Username:    u.Username,
	}, nil
}
