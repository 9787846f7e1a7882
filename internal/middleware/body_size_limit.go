package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WaitlistBodyLimit is the largest accepted signup body
const WaitlistBodyLimit int64 = 16 << 10

// BodySizeLimitMiddleware limits the size of request bodies.
// Reads past the limit fail, which the handlers report as an invalid body.
func BodySizeLimitMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

		c.Next()
	}
}
