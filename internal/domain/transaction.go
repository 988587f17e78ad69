package domain

import "time"

// Transaction statuses
const (
	StatusPending   = "pending"   // Awaiting gateway verification
	StatusCompleted = "completed" // Verified and credited
	StatusFailed    = "failed"    // Verification failed, nothing credited
)

// Transaction Model
// A transaction is created pending (or completed directly in the offline
// and admin-adjustment paths) and transitions exactly once to completed
// or failed; terminal states are never left.
type Transaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`             // Primary key
	UserID          uint      `gorm:"not null;index" json:"user_id"`    // Foreign key to User
	Amount          int       `gorm:"not null" json:"amount"`           // Price paid in major currency units
	TokensPurchased int       `gorm:"not null" json:"tokens_purchased"` // Tokens credited on completion
	Status          string    `gorm:"not null" json:"payment_status"`   // pending, completed or failed
	CreatedAt       time.Time `json:"transaction_date"`                 // Timestamp of creation
	OrderID         string    `gorm:"index" json:"order_id,omitempty"`  // Gateway order identifier
	PaymentID       string    `json:"payment_id,omitempty"`             // Gateway payment identifier
	Signature       string    `json:"-"`                                // Gateway signature, not serialized
}
