package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"interview-relay/internal/shared/server/respond"
	"interview-relay/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error body. Once an SSE stream
// has started the status line is already sent, so it only aborts.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			streaming := c.Writer.Written()
			telemetry.Error("panic", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"streaming":  streaming,
			})
			c.Set("outcome", "panic")
			if streaming {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
