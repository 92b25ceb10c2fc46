package transaction

import (
	"gatortrader_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for sale lifecycle handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new transaction handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the sale routes. Every route requires authentication.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	router.POST("/listings/:id/sale", authMW, h.proposeSale)

	txGroup := router.Group("/transactions")
	txGroup.Use(authMW)
	{
		txGroup.GET("", h.listTransactions)
		txGroup.GET("/:id", h.getTransaction)
		txGroup.POST("/:id/accept", h.acceptSale)
		txGroup.POST("/:id/reject", h.rejectSale)
	}
}

func parseID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid "+what+" ID format."))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) proposeSale(c *gin.Context) {
	sellerID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	listingID, ok := parseID(c, "listing")
	if !ok {
		return
	}

	var req ProposeSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Propose sale: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	resp, err := h.service.ProposeSale(c.Request.Context(), sellerID, listingID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing marked as sold. The buyer has been notified.", resp)
}

func (h *Handler) acceptSale(c *gin.Context) {
	callerID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, ok := parseID(c, "transaction")
	if !ok {
		return
	}
	resp, err := h.service.Accept(c.Request.Context(), callerID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Purchase confirmed.", resp)
}

func (h *Handler) rejectSale(c *gin.Context) {
	callerID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, ok := parseID(c, "transaction")
	if !ok {
		return
	}
	if err := h.service.Reject(c.Request.Context(), callerID, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Sale rejected. The listing is active again.", nil)
}

func (h *Handler) getTransaction(c *gin.Context) {
	callerID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	id, ok := parseID(c, "transaction")
	if !ok {
		return
	}
	resp, err := h.service.Get(c.Request.Context(), callerID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Transaction retrieved successfully.", resp)
}

func (h *Handler) listTransactions(c *gin.Context) {
	callerID, err := common.RequireUserID(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	items, pagination, err := h.service.ListForUser(c.Request.Context(), callerID, q)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Transactions retrieved successfully.", items, pagination)
}
