package domain

import "time"

// User Model
type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`             // Primary key
	Username         string     `gorm:"unique;not null" json:"username"`  // Unique username
	Email            string     `gorm:"unique;not null" json:"email"`     // Unique email address
	PasswordHash     string     `gorm:"not null" json:"-"`                // Hashed password, never serialized
	Tokens           int        `gorm:"not null;default:0" json:"tokens"` // Token balance, never negative
	Role             string     `gorm:"default:user" json:"role"`         // Role: user or admin
	CreatedAt        time.Time  `json:"created_at"`                       // Account creation time
	ResetToken       *string    `gorm:"unique" json:"-"`                  // Single-use password reset token
	ResetTokenExpiry *time.Time `json:"-"`                                // Reset token expiry time
	// Attempts and transactions are removed together with their owner
	Attempts     []QuizAttempt `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Transactions []Transaction `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == "admin" // Admins bypass token checks in the callers
}
