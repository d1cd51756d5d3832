package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"donation-api/internal/response"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware requires a matching X-API-Key header. An empty key disables the check.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		// If not passed via header, try to get from query parameters
		if key == "" {
			key = c.Query("api_key")
		}

		if key == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing api_key"))
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid api_key"))
			c.Abort()
			return
		}

		c.Set("request_time", time.Now())
		c.Next()
	}
}
