package middleware

import (
	"errors"
	"net/http"

	apperrors "storefront-support/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at maxBytes. Declared oversize bodies are
// refused up front; the rest are cut off while the handler reads them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWith(c, PayloadTooLarge(maxBytes))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// PayloadTooLarge is the error reported for bodies over the limit
func PayloadTooLarge(maxBytes int64) *apperrors.AppError {
	return apperrors.NewPayloadTooLargeError(apperrors.CodePayloadTooLarge, "Request body too large").
		WithDetails(gin.H{"maxBytes": maxBytes})
}

// abortWith writes the error envelope itself so the response does not depend
// on ErrorHandler running earlier in the chain. The error is still attached
// for request logging.
func abortWith(c *gin.Context, appErr *apperrors.AppError) {
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.StatusCode, apperrors.Envelope(appErr))
}

// IsBodyTooLarge reports whether err came from reading past the body limit
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
