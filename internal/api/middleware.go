package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"batch-dispatch-service/internal/logging"
)

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		logger.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, c.Writer.Status(), time.Since(start))
	}
}
