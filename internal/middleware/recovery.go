package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a panic into a 500 JSON response
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.String("panic", fmt.Sprint(recovered)),
			zap.String("request_id", c.GetString(RequestIDKey)))

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error.",
		})
	})
}
