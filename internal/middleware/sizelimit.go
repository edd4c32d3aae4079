package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/scribe-api/pkg/errors"
	"github.com/jwalitptl/scribe-api/pkg/httputil"
)

// multipartOverhead covers the multipart envelope around an uploaded file.
const multipartOverhead = 64 << 10

// SizeLimitConfig represents size limit configuration
type SizeLimitConfig struct {
	MaxBodySize   int64 // in bytes
	MaxUploadSize int64 // in bytes
	MaxHeaderSize int   // in bytes
	// UploadRoutes are gin route patterns that accept file uploads.
	UploadRoutes []string
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize:   1 << 20,  // 1MB
		MaxUploadSize: 10 << 20, // 10MB
		MaxHeaderSize: 1 << 14,  // 16KB
	}
}

// SizeLimit rejects oversized requests early and caps how much of the body
// handlers can read.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	uploads := make(map[string]bool, len(config.UploadRoutes))
	for _, r := range config.UploadRoutes {
		uploads[r] = true
	}

	return func(c *gin.Context) {
		headerSize := 0
		for name, values := range c.Request.Header {
			headerSize += len(name)
			for _, value := range values {
				headerSize += len(value)
			}
		}
		if config.MaxHeaderSize > 0 && headerSize > config.MaxHeaderSize {
			abortTooLarge(c, int64(config.MaxHeaderSize))
			return
		}

		limit := config.MaxBodySize
		if uploads[c.FullPath()] {
			limit = config.MaxUploadSize + multipartOverhead
		}
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			abortTooLarge(c, limit)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}

func abortTooLarge(c *gin.Context, limit int64) {
	status, body := httputil.ErrorBody(apperrors.TooLarge(limit))
	c.AbortWithStatusJSON(status, body)
}
