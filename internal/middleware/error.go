package middleware

import (
	"net/http"

	"gatortrader_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors pushed with c.Error and the router's own 404/405 answers as APIError bodies.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			if apiErr, ok := common.IsAPIError(err); ok {
				c.AbortWithStatusJSON(apiErr.StatusCode, apiErr)
				return
			}
			logger.Error("Unhandled application error",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDContextKey)),
			)
			generic := common.ErrInternalServer
			if gin.Mode() == gin.DebugMode {
				generic = generic.WithDetails(err.Error())
			}
			c.AbortWithStatusJSON(generic.StatusCode, generic)
			return
		}

		switch c.Writer.Status() {
		case http.StatusNotFound:
			e := common.ErrNotFound.WithDetails("The requested endpoint does not exist.")
			c.AbortWithStatusJSON(e.StatusCode, e)
		case http.StatusMethodNotAllowed:
			e := common.NewAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The method is not allowed for the requested URL.")
			c.AbortWithStatusJSON(e.StatusCode, e)
		}
	}
}
