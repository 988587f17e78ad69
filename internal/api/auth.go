package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"regexp"   // Email validation
	"time"     // Reset token expiry

	"github.com/learner420/quizify/internal/domain" // Importing domain models
	"github.com/learner420/quizify/internal/mail"   // Email delivery
	"github.com/learner420/quizify/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// emailRegex validates email address format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest is the registration payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// RegisterHandler creates a new user account. The first user on record
// becomes the admin and is seeded with tokens, since there is no other
// bootstrap path for an administrator.
func RegisterHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		// Validate email format
		if !emailRegex.MatchString(req.Email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
			return
		}
		// Reject duplicate usernames
		var existing domain.User
		if err := db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		// Reject duplicate emails
		if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
		// Hash the password and create the user
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{
			Username:     req.Username, // Requested username
			Email:        req.Email,    // Requested email
			PasswordHash: string(hash), // Bcrypt hash
			Role:         "user",       // Default role
		}
		// The first registered user becomes the admin
		var count int64
		if err := db.Model(&domain.User{}).Count(&count).Error; err == nil && count == 0 {
			user.Role = "admin" // Bootstrap administrator
			user.Tokens = 100   // Seed the admin with plenty of tokens
		}
		// Attempt to create the user in the database
		if err := db.Create(&user).Error; err != nil {
			// Unique constraints can still race the checks above
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username or email already exists"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,       // New user id
			"username": user.Username, // New username
			"role":     user.Role,     // Assigned role
		}).Info("User registered")
		// Return the created user
		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully",
			"user": gin.H{
				"id":       user.ID,       // User id
				"username": user.Username, // Username
				"email":    user.Email,    // Email
				"role":     user.Role,     // Role
			},
		})
	}
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email or password"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			// If user not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token and the user profile
		c.JSON(http.StatusOK, gin.H{
			"message": "Login successful",
			"token":   token, // Bearer token for subsequent requests
			"user": gin.H{
				"id":       user.ID,       // User id
				"username": user.Username, // Username
				"email":    user.Email,    // Email
				"tokens":   user.Tokens,   // Token balance
				"role":     user.Role,     // Role
			},
		})
	}
}

// LogoutHandler invalidates the caller's JWT by denylisting it in
// Redis until its natural expiry
func LogoutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, exists := c.Get("jwt") // Raw token set by the middleware
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Hold the denylist entry as long as the token could be valid
		if err := utils.Denylist(context.Background(), rdb, token.(string), 24*time.Hour); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Logout failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
	}
}

// ProfileHandler returns the authenticated user's profile
func ProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"id":         user.ID,                             // User id
				"username":   user.Username,                       // Username
				"email":      user.Email,                          // Email
				"tokens":     user.Tokens,                         // Token balance
				"role":       user.Role,                           // Role
				"created_at": user.CreatedAt.Format(time.RFC3339), // Registration time
			},
		})
	}
}

// ForgotPasswordRequest is the reset request payload
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"` // Email must be provided
}

// ForgotPasswordHandler issues a single-use reset token and mails a
// reset link. The response never reveals whether the account exists.
func ForgotPasswordHandler(db *gorm.DB, mailer *mail.Mailer, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
			return
		}
		// The same message is returned whether or not the user exists
		neutral := gin.H{"message": "If an account exists with this email, you will receive a password reset link"}
		var user domain.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusOK, neutral) // Do not reveal missing accounts
			return
		}
		// Issue a reset token valid for one hour
		token := utils.NewResetToken()
		expiry := time.Now().Add(time.Hour)
		updates := map[string]any{"reset_token": token, "reset_token_expiry": expiry}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reset email"})
			return
		}
		// Mail the reset link
		resetLink := baseURL + "/reset-password?token=" + token + "&email=" + req.Email
		body := "To reset your password, visit the following link:\n" + resetLink +
			"\n\nIf you did not make this request then simply ignore this email and no changes will be made.\n\nThis link will expire in 1 hour.\n"
		if err := mailer.Send(req.Email, "Password Reset Request", body); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reset email"})
			return
		}
		c.JSON(http.StatusOK, neutral)
	}
}

// ResetPasswordRequest is the reset completion payload
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`        // Reset token from the email
	Email       string `json:"email" binding:"required"`        // Account email
	NewPassword string `json:"new_password" binding:"required"` // Replacement password
}

// ResetPasswordHandler completes a password reset and clears the token
func ResetPasswordHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Token, email and new password are required"})
			return
		}
		var user domain.User
		if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset link"})
			return
		}
		// The token must match and must not have expired
		if user.ResetToken == nil || *user.ResetToken != req.Token ||
			user.ResetTokenExpiry == nil || time.Now().After(*user.ResetTokenExpiry) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset link"})
			return
		}
		// Hash the replacement password
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Store the new hash and clear the single-use token
		updates := map[string]any{
			"password_hash":      string(hash), // Replacement hash
			"reset_token":        nil,          // Token is single use
			"reset_token_expiry": nil,          // Expiry cleared with it
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID, // Affected user
		}).Info("Password reset completed")
		c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully"})
	}
}
