// Package ledger holds per-user token balances. It knows nothing about
// roles; the admin exemption from debits lives in the callers.
package ledger

import (
	"errors" // Sentinel errors

	"github.com/learner420/quizify/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// ErrInsufficientTokens is returned when a debit finds a zero balance
var ErrInsufficientTokens = errors.New("insufficient tokens")

// Ledger performs atomic token balance mutations
type Ledger struct {
	db *gorm.DB // Database handle, may be a transaction
}

// New creates a ledger on top of a database handle
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger bound to the given transaction so debits and
// credits commit or roll back together with the caller's other writes
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// Credit unconditionally adds tokens to the user's balance
func (l *Ledger) Credit(userID uint, amount int) error {
	return l.db.Model(&domain.User{}).
		Where("id = ?", userID).
		Update("tokens", gorm.Expr("tokens + ?", amount)).Error
}

// DebitOne decrements the balance by one token if and only if it is
// positive. The guard in the WHERE clause makes concurrent debits safe:
// a racing request sees zero rows affected instead of a negative balance.
func (l *Ledger) DebitOne(userID uint) error {
	res := l.db.Model(&domain.User{}).
		Where("id = ? AND tokens > 0", userID).
		Update("tokens", gorm.Expr("tokens - 1"))
	if res.Error != nil {
		return res.Error // Database failure
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientTokens // Balance was already zero
	}
	return nil
}

// Debit decrements the balance by amount if and only if the balance
// covers it, with the same race-safe guard as DebitOne
func (l *Ledger) Debit(userID uint, amount int) error {
	res := l.db.Model(&domain.User{}).
		Where("id = ? AND tokens >= ?", userID, amount).
		Update("tokens", gorm.Expr("tokens - ?", amount))
	if res.Error != nil {
		return res.Error // Database failure
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientTokens // Balance does not cover the debit
	}
	return nil
}

// Balance returns the user's current token balance
func (l *Ledger) Balance(userID uint) (int, error) {
	var user domain.User
	if err := l.db.Select("tokens").First(&user, userID).Error; err != nil {
		return 0, err // User not found or database failure
	}
	return user.Tokens, nil
}
