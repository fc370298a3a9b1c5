package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// identityHeader carries the authenticated user ID, set by the fronting
// proxy after credential verification.
const identityHeader = "X-User-Id"

const userIDKey = "webmail.userID"

// cors sets the fixed CORS header set on every response and answers
// preflight requests with an empty 200.
func (a *API) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+identityHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// identity requires the identity header and stashes the user ID in the
// request context.
func (a *API) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(identityHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  codeAuthRequired,
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// userID returns the authenticated user ID stored by the identity
// middleware.
func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// requestLog logs one line per completed request.
func (a *API) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		a.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(started),
		)
	}
}
