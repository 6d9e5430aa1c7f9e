package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/connexus-ai/knowledge-agent/pkg/log"
)

// RequestLog emits one structured line per request.
func RequestLog() gin.HandlerFunc {
	logger := log.WithModule("http")

	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(started),
			"client", c.ClientIP(),
		)
	}
}
