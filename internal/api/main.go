package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// IndexHandler returns the API welcome message
func IndexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Quiz App API", // Greeting
			"status":  "online",                      // Liveness flag
			"version": "1.0.0",                       // API version
		})
	}
}

// HealthHandler reports service health
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",                  // Health flag
			"message": "API is running correctly", // Detail
		})
	}
}
