package ingestion

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsHeaders sets the permissive CORS headers on every webhook response
// and answers preflight requests directly.
func corsHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "authorization, content-type, x-signature, x-timestamp, x-idempotency-key")
		h.Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
