package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/shared/metrics"
	"interview-relay/internal/shared/telemetry"
)

// Logging emits a structured log per request and counts it in metrics.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		sessionName, _ := c.Get("sessionName")
		model, _ := c.Get("model")
		outcome := ""
		if raw, ok := c.Get("outcome"); ok {
			if s, ok := raw.(string); ok {
				outcome = s
			}
		}

		metrics.ObserveHTTP(c.FullPath(), status)
		telemetry.Info("request.complete", map[string]any{
			"request_id":  reqID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"outcome":     outcome,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"session":     sessionName,
			"model":       model,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})
	}
}
