package chatbot

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gatortrader_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ModeChat forwards the prompt unchanged.
	ModeChat = "chat"
	// ModePrice treats the prompt as an item name and asks for a short price range.
	ModePrice = "price"
)

const priceEstimateTemplate = "What is the average price for a %s? Please provide a range and keep the response to be under 50 words."

// ChatRequest is the body of POST /chatbot. Mode defaults to chat.
type ChatRequest struct {
	Prompt string `json:"prompt"`
	Mode   string `json:"mode" binding:"omitempty,oneof=chat price"`
}

// ChatResponse carries the trimmed completion text.
type ChatResponse struct {
	Response string `json:"response"`
}

// Handler serves the support chatbot.
type Handler struct {
	completer Completer
	logger    *zap.Logger
}

// NewHandler creates a chatbot handler backed by completer.
func NewHandler(completer Completer, logger *zap.Logger) *Handler {
	return &Handler{completer: completer, logger: logger}
}

// RegisterRoutes mounts POST /chatbot behind the given middleware (rate limiting).
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, mw ...gin.HandlerFunc) {
	router.POST("/chatbot", append(mw, h.chat)...)
}

// buildPrompt returns the text sent to the completion service.
func buildPrompt(req ChatRequest) string {
	prompt := strings.TrimSpace(req.Prompt)
	if req.Mode == ModePrice {
		return fmt.Sprintf(priceEstimateTemplate, prompt)
	}
	return req.Prompt
}

func (h *Handler) chat(c *gin.Context) {
	var req ChatRequest
	// An empty body is the same as a missing prompt.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("No prompt provided"))
		return
	}

	reply, err := h.completer.Complete(c.Request.Context(), buildPrompt(req))
	if err != nil {
		h.logger.Error("Chat completion failed", zap.Error(err), zap.String("mode", req.Mode))
		common.RespondWithError(c, common.ErrUpstreamUnavailable.WithMessage("OpenAI call failed"))
		return
	}
	common.RespondOK(c, "", ChatResponse{Response: reply})
}
