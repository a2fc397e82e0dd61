package errors

import (
	"storefront-support/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler returns a middleware that catches and formats application errors
// attached with c.Error. Handlers that already wrote a body are left alone.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := FromError(c.Errors.Last().Err)

		log := logger.FromGin(c)
		attrs := []any{
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"status_code", appErr.StatusCode,
			"error_code", appErr.Code,
		}
		if appErr.StatusCode >= 500 {
			log.LogError(appErr, "Request failed", attrs...)
		} else {
			log.Warn("Request rejected", append(attrs, "message", appErr.Message)...)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(appErr.StatusCode, Envelope(appErr))
	}
}

// NotFoundHandler answers unmatched routes with the standard envelope
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(NewNotFoundError(CodeRouteNotFound, "Route not found").
			WithDetails(c.Request.Method + " " + c.Request.URL.Path))
	}
}
