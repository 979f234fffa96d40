package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

// SessionReader resolves the logged-in user of a request.
type SessionReader interface {
	UserID(c *gin.Context) (uint, bool)
}

// LoginRequired redirects anonymous requests to /login before the handler runs.
func LoginRequired(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessions.UserID(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
