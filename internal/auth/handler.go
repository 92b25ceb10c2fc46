package auth

import (
	"gatortrader_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for authentication operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.signup)
		authGroup.POST("/login", h.login)
		authGroup.POST("/password-reset", h.passwordReset)
		authGroup.POST("/logout", authMW, h.logout)
		authGroup.POST("/change-password", authMW, h.changePassword)
	}
}

func (h *Handler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Account created.", gin.H{"id": u.ID, "username": u.Username})
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Login successful.", resp)
}

func (h *Handler) logout(c *gin.Context) {
	sess := common.GetSessionFromContext(c)
	if sess == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(c.Request.Context(), sess); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Logged out.", nil)
}

func (h *Handler) passwordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	h.service.RequestPasswordReset(c.Request.Context(), req.Email)
	common.RespondOK(c, "If an account exists for this email, a reset link has been sent.", nil)
}

func (h *Handler) changePassword(c *gin.Context) {
	sess := common.GetSessionFromContext(c)
	if sess == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), sess, req); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Password updated.", nil)
}
