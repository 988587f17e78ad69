package middleware

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/learner420/quizify/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// JWTAuthMiddleware validates JWT tokens and extracts user information.
// Tokens denylisted by logout are rejected even before they expire.
func JWTAuthMiddleware(secret string, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		// Reject tokens invalidated by logout
		if rdb != nil {
			denied, err := utils.IsDenylisted(context.Background(), rdb, tokenStr)
			if err == nil && denied {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
		}
		c.Set("userID", claims.UserID) // Store userID in context
		c.Set("jwt", tokenStr)         // Raw token, needed by logout
		c.Next()                       // Proceed to the next handler
	}
}
