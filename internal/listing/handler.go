// File: internal/listing/handler.go
package listing

import (
	"errors"
	"mime/multipart"
	"net/http"

	"gatortrader_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for listing handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new listing handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for listing operations. optionalAuthMW attaches a session when
// a valid token is present and lets anonymous requests through.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, optionalAuthMW gin.HandlerFunc) {
	listingGroup := router.Group("/listings")
	{
		listingGroup.GET("", h.browseListings)
		listingGroup.GET("/search", h.searchListings)
		listingGroup.GET("/:id", optionalAuthMW, h.getListingByID)

		authedListingGroup := listingGroup.Group("")
		authedListingGroup.Use(authMW)
		{
			authedListingGroup.GET("/mine", h.getMyListings)
			authedListingGroup.POST("", h.createListing)
			authedListingGroup.PUT("/:id", h.updateListing)
			authedListingGroup.PATCH("/:id/status", h.setListingStatus)
			authedListingGroup.DELETE("/:id", h.deleteListing)
		}
	}
}

func parseListingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid listing ID format."))
		return uuid.Nil, false
	}
	return id, true
}

// optionalImage returns the "image" form file, or nil when none was sent.
func optionalImage(c *gin.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, common.ErrBadRequest.WithDetails("Invalid image upload: " + err.Error())
	}
	return fh, nil
}

func (h *Handler) createListing(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Create listing: Invalid request", zap.Error(err), zap.String("userID", userID.String()))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	image, err := optionalImage(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), userID, req, image)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing created successfully.", resp)
}

func (h *Handler) getListingByID(c *gin.Context) {
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	resp, err := h.service.Get(c.Request.Context(), id, common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", resp)
}

func (h *Handler) updateListing(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	image, err := optionalImage(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	resp, err := h.service.Update(c.Request.Context(), id, userID, req, image)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing updated successfully.", resp)
}

func (h *Handler) setListingStatus(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	resp, err := h.service.SetStatus(c.Request.Context(), id, userID, req.Status)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing status updated successfully.", resp)
}

func (h *Handler) deleteListing(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, ok := parseListingID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) browseListings(c *gin.Context) {
	var q BrowseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	items, pagination, err := h.service.Browse(c.Request.Context(), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Listings retrieved successfully.", items, pagination)
}

func (h *Handler) searchListings(c *gin.Context) {
	var q BrowseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	items, pagination, err := h.service.Search(c.Request.Context(), c.Query("q"), q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Search results retrieved successfully.", items, pagination)
}

func (h *Handler) getMyListings(c *gin.Context) {
	userID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	items, err := h.service.MyListings(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Your listings retrieved successfully.", items)
}
