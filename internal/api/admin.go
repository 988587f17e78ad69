package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations and formatting

	"github.com/learner420/quizify/internal/domain"  // Importing domain models
	"github.com/learner420/quizify/internal/payment" // Token package store
	"github.com/learner420/quizify/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID        uint   `json:"id"`         // User ID
	Username  string `json:"username"`   // Username
	Email     string `json:"email"`      // Email address
	Tokens    int    `json:"tokens"`     // Token balance
	Role      string `json:"role"`       // User role
	CreatedAt string `json:"created_at"` // Registration time
}

// adminUserView maps a user to its admin response form
func adminUserView(u domain.User) UserAdminResponse {
	return UserAdminResponse{
		ID:        u.ID,                             // User ID
		Username:  u.Username,                       // Username
		Email:     u.Email,                          // Email address
		Tokens:    u.Tokens,                         // Token balance
		Role:      u.Role,                           // User role
		CreatedAt: u.CreatedAt.Format(time.RFC3339), // Registration time
	}
}

// ListUsersHandler returns all users with their token balances
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		// Try to get cached response
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page := 1      // Default page number
		pageSize := 20 // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			// If valid, set page size
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size
			}
		}
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total user count
		// Fetch total user count
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"}) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		// Apply offset and limit for pagination
		if err := db.Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		// Prepare response data
		resp := make([]UserAdminResponse, len(users))
		// Map users to response format
		for i, u := range users {
			resp[i] = adminUserView(u)
		}
		// Prepare final response data
		respData := gin.H{
			"users":       resp,       // List of users
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of users
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// GetUserHandler returns a single user by id
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User // Fetch user from database
		if err := db.First(&user, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": adminUserView(user)})
	}
}

// UpdateTokensRequest is the admin token adjustment payload
type UpdateTokensRequest struct {
	Tokens *int `json:"tokens" binding:"required"` // Replacement balance
}

// UpdateUserTokensHandler sets a user's balance and records the delta
// as a zero-amount completed adjustment transaction
func UpdateUserTokensHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentUser(c, db) // The adjusting admin
		if !ok {
			return
		}
		var user domain.User // Fetch target user from database
		if err := db.First(&user, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var req UpdateTokensRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil || req.Tokens == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Tokens value is required"})
			return
		}
		tokens := *req.Tokens
		if tokens < 0 {
			// Balances never go negative
			c.JSON(http.StatusBadRequest, gin.H{"error": "Tokens cannot be negative"})
			return
		}
		// Record the adjustment and apply the new balance atomically
		err := db.Transaction(func(tx *gorm.DB) error {
			record := domain.Transaction{
				UserID:          user.ID,                // Adjusted user
				Amount:          0,                      // Admin adjustment, no cost
				TokensPurchased: tokens - user.Tokens,   // Delta, may be negative
				Status:          domain.StatusCompleted, // Adjustments are terminal
				OrderID:         "admin_adjustment_" + strconv.Itoa(int(admin.ID)),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err // Roll back on failure
			}
			return tx.Model(&user).Update("tokens", tokens).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tokens"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"admin_id": admin.ID, // Adjusting admin
			"user_id":  user.ID,  // Adjusted user
			"tokens":   tokens,   // New balance
		}).Info("User tokens adjusted")
		// Invalidate cached admin listings and the user's history
		ctx := context.Background()
		_ = utils.DeleteCacheByPrefix(ctx, rdb, "admin:users:")
		_ = utils.DeleteCache(ctx, rdb, "txhistory:user:"+strconv.Itoa(int(user.ID)))
		c.JSON(http.StatusOK, gin.H{
			"message": "User tokens updated successfully",
			"user": gin.H{
				"id":       user.ID,       // User id
				"username": user.Username, // Username
				"email":    user.Email,    // Email
				"tokens":   tokens,        // New balance
			},
		})
	}
}

// UpdateRoleRequest is the admin role change payload
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"` // Replacement role
}

// UpdateUserRoleHandler changes a user's role
func UpdateUserRoleHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User // Fetch target user from database
		if err := db.First(&user, c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		var req UpdateRoleRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Role is required"})
			return
		}
		// Only the two known roles are accepted
		if req.Role != "user" && req.Role != "admin" {
			c.JSON(http.StatusBadRequest, gin.H{"error": `Invalid role. Must be "user" or "admin"`})
			return
		}
		if err := db.Model(&user).Update("role", req.Role).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
			return
		}
		// Invalidate cached admin listings
		_ = utils.DeleteCacheByPrefix(context.Background(), rdb, "admin:users:")
		c.JSON(http.StatusOK, gin.H{
			"message": "User role updated successfully",
			"user": gin.H{
				"id":       user.ID,       // User id
				"username": user.Username, // Username
				"email":    user.Email,    // Email
				"role":     req.Role,      // New role
			},
		})
	}
}

// TokenPackagesHandler returns the configured token packages
func TokenPackagesHandler(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		packages, err := svc.Packages() // Read from the package table
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch packages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"packages": packages})
	}
}

// PackageUpdate is one package entry of an update request
type PackageUpdate struct {
	Amount *int `json:"amount"` // Price in major currency units
	Tokens *int `json:"tokens"` // Tokens granted on purchase
}

// UpdateTokenPackagesHandler creates or updates token packages. The
// packages persist in the database rather than process memory, so
// edits survive restarts.
func UpdateTokenPackagesHandler(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req map[string]PackageUpdate // Bind JSON request to a package map
		if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data format"})
			return
		}
		// Validate every entry before writing any
		for name, pkg := range req {
			if pkg.Amount == nil || pkg.Tokens == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid package data for " + name})
				return
			}
			if *pkg.Amount < 0 || *pkg.Tokens < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Amount and tokens cannot be negative"})
				return
			}
		}
		// Apply the updates
		for name, pkg := range req {
			if err := svc.UpsertPackage(name, *pkg.Amount, *pkg.Tokens); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update packages"})
				return
			}
		}
		packages, err := svc.Packages() // Return the resulting catalogue
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch packages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  "Token packages updated successfully",
			"packages": packages, // Updated catalogue
		})
	}
}
