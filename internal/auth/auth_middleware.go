package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkup/backend/pkg/jwt"
)

// ContextUserID is the gin context key holding the authenticated user ID.
const ContextUserID = "userID"

// AuthMiddleware rejects requests without a valid bearer token and sets the userID otherwise.
func AuthMiddleware() gin.HandlerFunc {
	return requireUser(bearerUserID)
}

// StreamAuthMiddleware is AuthMiddleware for event streams. EventSource cannot
// set headers, so the token may also come as the access_token query parameter.
func StreamAuthMiddleware() gin.HandlerFunc {
	return requireUser(func(c *gin.Context) (uint, bool) {
		if userID, ok := bearerUserID(c); ok {
			return userID, true
		}
		token := c.Query("access_token")
		if token == "" || c.Request.Method != http.MethodGet {
			return 0, false
		}
		userID, err := jwt.ParseToken(token)
		return userID, err == nil
	})
}

func requireUser(identify func(*gin.Context) (uint, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := identify(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		}
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the authenticated user ID, if any.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func bearerUserID(c *gin.Context) (uint, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}
	userID, err := jwt.ParseToken(parts[1])
	if err != nil {
		return 0, false
	}
	return userID, true
}
