package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore marks responses as uncacheable. Console views are per-operator
// state and downloads are generated on demand.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
