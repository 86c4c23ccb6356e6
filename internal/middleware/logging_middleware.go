package middleware

import (
	"time"

	"leadflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		// Liveness probes would drown the request log.
		if path == "/ping" || path == "/health" {
			return
		}

		latency := time.Since(start)
		status := c.Writer.Status()
		requestID, _ := c.Request.Context().Value(logger.RequestIdKey).(string)

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log != nil {
			log.Infof("%s %s %d %s rid=%s", method, path, status, latency.String(), requestID)
		}
	}
}
