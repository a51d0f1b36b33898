package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload as-is with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes payload with 200. Used by the endpoints whose body is the
// resource itself (/profile, /usage, /models, /ai).
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Status writes {"status":"ok", ...payload} with 200. The desktop client
// branches on the status field rather than the HTTP code.
func Status(c *gin.Context, payload gin.H) {
	body := gin.H{"status": "ok"}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// StatusError writes {"status":"error","code":...,"error":...} and logs it.
func StatusError(c *gin.Context, status int, code, message string) {
	logError(c, status, code, message)
	c.AbortWithStatusJSON(status, gin.H{
		"status": "error",
		"code":   code,
		"error":  message,
	})
}
