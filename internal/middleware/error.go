package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/scribe-api/pkg/errors"
	"github.com/jwalitptl/scribe-api/pkg/httputil"
	"github.com/jwalitptl/scribe-api/pkg/logger"
)

// ErrorHandler renders the last error attached by a handler with c.Error.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Debug("request error",
				"request_id", requestID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"error", e.Err.Error())
		}

		err := classify(c.Errors.Last().Err)
		status, body := httputil.ErrorBody(err)
		if status >= 500 {
			log.Error(err, "request failed",
				"request_id", requestID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"status", status)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, body)
	}
}

func classify(err error) error {
	if _, ok := apperrors.As(err); !ok && errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(err)
	}
	return withValidationDetails(err)
}

// withValidationDetails lists failed fields for binding errors.
func withValidationDetails(err error) error {
	fields := ValidationDetails(err)
	if len(fields) == 0 {
		return err
	}

	appErr, ok := apperrors.As(err)
	if !ok {
		return apperrors.BadRequest("validation failed", err).WithDetails(fields)
	}
	if appErr.Details == nil {
		appErr.Details = fields
	}
	return appErr
}
