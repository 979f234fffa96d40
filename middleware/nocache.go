package middleware

import "github.com/gin-gonic/gin"

// NoCache stops browsers from caching any response, so back navigation
// after logout never shows an authenticated page.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		c.Next()
	}
}
