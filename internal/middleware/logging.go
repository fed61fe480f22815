package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Amitphadol/Babylon-login-app/internal/logger"
)

// GinRequestLogger logs one line per finished request.
func GinRequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		if c.Writer.Status() >= 500 {
			logger.Error("http request", fields)
			return
		}
		logger.Info("http request", fields)
	}
}
