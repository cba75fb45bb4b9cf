package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger returns a Gin middleware that logs each request using zap.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}

		// Handlers attach internal errors to the context instead of leaking
		// them to the client; they surface here.
		if len(c.Errors) > 0 {
			log.Error("request", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Info("request", fields...)
	}
}
