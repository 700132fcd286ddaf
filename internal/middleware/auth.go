package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Christina1281995/tema-emotions/internal/service"
	"github.com/Christina1281995/tema-emotions/internal/session"
)

// SessionKey is the gin context key the authenticated session is stored under.
const SessionKey = "session"

// AuthMiddleware creates a Gin middleware that verifies the bearer token and
// resolves the server-side session it names.
func AuthMiddleware(tokens *service.TokenIssuer, sessions *session.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			logger.Debug("Rejected session token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		sess, ok := sessions.Get(claims.SessionID)
		if !ok {
			// Valid signature but the session was logged out or swept.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please log in again"})
			c.Abort()
			return
		}

		c.Set(SessionKey, sess)
		c.Next()
	}
}

// SessionFromContext returns the session placed by AuthMiddleware.
func SessionFromContext(c *gin.Context) *session.Session {
	return c.MustGet(SessionKey).(*session.Session)
}
