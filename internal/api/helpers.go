package api

import (
	"net/http" // HTTP status codes

	"github.com/learner420/quizify/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// currentUser loads the authenticated user from the request context.
// It aborts the request itself when the user cannot be resolved.
func currentUser(c *gin.Context, db *gorm.DB) (*domain.User, bool) {
	userID, exists := c.Get("userID") // Get userID from context
	if !exists {
		// Missing context means the middleware did not run
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	var user domain.User // Fetch user from database
	if err := db.First(&user, userID).Error; err != nil {
		// The token refers to a user that no longer exists
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return &user, true
}
