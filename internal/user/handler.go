// File: internal/user/handler.go
package user

import (
	"gatortrader_backend/internal/common"
	"gatortrader_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterValidators installs the "username" binding tag on gin's validator.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return ValidUsername(fl.Field().String())
		})
	}
}

// RegisterRoutes sets up the routes for user operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	userGroup := router.Group("/users")
	{
		authenticatedUserGroup := userGroup.Group("")
		authenticatedUserGroup.Use(authMW)
		{
			authenticatedUserGroup.GET("/me", h.getMe)
			authenticatedUserGroup.PUT("/me", h.updateMe)
			authenticatedUserGroup.PUT("/me/picture", h.updatePicture)
		}
		userGroup.GET("/:username", h.getPublicProfile)
	}
}

func (h *Handler) getMe(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	usr, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", shared.ToUserResponse(usr))
}

func (h *Handler) updateMe(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Update profile: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	usr, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", shared.ToUserResponse(usr))
}

func (h *Handler) updatePicture(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	file, err := c.FormFile("picture")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("A 'picture' file field is required."))
		return
	}
	usr, err := h.service.UpdateProfilePicture(c.Request.Context(), userID, file)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile picture updated successfully.", shared.ToUserResponse(usr))
}

func (h *Handler) getPublicProfile(c *gin.Context) {
	usr, err := h.service.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", shared.ToPublicProfileResponse(usr))
}
