// Package payment implements the token purchase flow: order creation
// against a gateway (or an offline test mode), idempotent payment
// verification, and transaction history.
package payment

import (
	"errors" // Sentinel errors
	"fmt"    // Receipt formatting

	"github.com/learner420/quizify/internal/domain" // Importing domain models
	"github.com/learner420/quizify/internal/ledger" // Token balance ledger

	"github.com/google/uuid"     // Offline order ids
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ErrUnknownPackage is returned for a package name not on offer
var ErrUnknownPackage = errors.New("invalid package selected")

// ErrTransactionNotFound is returned when no transaction matches an order
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrVerificationFailed is returned when a gateway signature is invalid
var ErrVerificationFailed = errors.New("payment verification failed")

// Service runs the purchase flow against the database and the gateway
type Service struct {
	db      *gorm.DB       // Transaction store
	ledger  *ledger.Ledger // Token balances
	gateway Gateway        // Payment provider, nil enables offline mode
}

// NewService creates a purchase service. A nil gateway switches order
// creation into the offline test mode that credits tokens immediately.
func NewService(db *gorm.DB, gateway Gateway) *Service {
	return &Service{db: db, ledger: ledger.New(db), gateway: gateway}
}

// Offline reports whether no gateway is configured
func (s *Service) Offline() bool {
	return s.gateway == nil
}

// KeyID returns the gateway's public key id, empty in offline mode
func (s *Service) KeyID() string {
	if s.gateway == nil {
		return ""
	}
	return s.gateway.KeyID()
}

// Packages returns the purchasable token packages keyed by name
func (s *Service) Packages() (map[string]domain.TokenPackage, error) {
	var rows []domain.TokenPackage
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	packages := make(map[string]domain.TokenPackage, len(rows))
	for _, p := range rows {
		packages[p.Name] = p // Keyed by package name
	}
	return packages, nil
}

// UpsertPackage creates or updates a token package
func (s *Service) UpsertPackage(name string, amount, tokens int) error {
	pkg := domain.TokenPackage{Name: name, Amount: amount, Tokens: tokens}
	return s.db.Save(&pkg).Error
}

// OrderResult is the outcome of creating an order
type OrderResult struct {
	OrderID     string  // Gateway or synthesized order id
	Amount      float64 // Price in major currency units
	Currency    string  // Currency code
	KeyID       string  // Gateway public key for checkout
	TokensAdded int     // Tokens credited immediately (offline mode only)
	Tokens      int     // Current balance after the call
	Offline     bool    // Whether the offline path ran
}

// CreateOrder starts a purchase of the named package. With a gateway a
// pending transaction is recorded against the gateway order; without
// one the transaction completes immediately and tokens are credited.
func (s *Service) CreateOrder(user *domain.User, packageName string) (*OrderResult, error) {
	var pkg domain.TokenPackage
	if err := s.db.First(&pkg, "name = ?", packageName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownPackage // Unknown package name
		}
		return nil, err
	}

	if s.gateway == nil {
		// Offline test mode: complete and credit in one transaction
		orderID := fmt.Sprintf("order_test_%d_%s_%s", user.ID, pkg.Name, uuid.NewString()[:8])
		tx := domain.Transaction{
			UserID:          user.ID,                // Purchasing user
			Amount:          pkg.Amount,             // Package price
			TokensPurchased: pkg.Tokens,             // Tokens granted
			Status:          domain.StatusCompleted, // Auto-completed for testing
			OrderID:         orderID,                // Synthesized order id
		}
		err := s.db.Transaction(func(dbtx *gorm.DB) error {
			if err := dbtx.Create(&tx).Error; err != nil {
				return err
			}
			return s.ledger.WithTx(dbtx).Credit(user.ID, pkg.Tokens)
		})
		if err != nil {
			return nil, err
		}
		tokens, err := s.ledger.Balance(user.ID)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,    // Purchasing user
			"package": pkg.Name,   // Package name
			"tokens":  pkg.Tokens, // Tokens credited
		}).Info("Offline purchase completed")
		return &OrderResult{
			OrderID:     orderID, // Synthesized id
			Amount:      float64(pkg.Amount),
			Currency:    "INR",      // Display currency
			TokensAdded: pkg.Tokens, // Credited immediately
			Tokens:      tokens,     // Current balance
			Offline:     true,       // Offline path ran
		}, nil
	}

	// Gateway path: amounts are sent in minor currency units
	receipt := fmt.Sprintf("order_rcptid_%d_%s", user.ID, pkg.Name)
	order, err := s.gateway.CreateOrder(pkg.Amount*100, "INR", receipt)
	if err != nil {
		return nil, err
	}
	tx := domain.Transaction{
		UserID:          user.ID,              // Purchasing user
		Amount:          pkg.Amount,           // Package price
		TokensPurchased: pkg.Tokens,           // Tokens granted on completion
		Status:          domain.StatusPending, // Awaiting verification
		OrderID:         order.ID,             // Gateway order id
	}
	if err := s.db.Create(&tx).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,  // Purchasing user
		"package":  pkg.Name, // Package name
		"order_id": order.ID, // Gateway order id
	}).Info("Payment order created")
	return &OrderResult{
		OrderID:  order.ID,                    // Gateway order id
		Amount:   float64(order.Amount) / 100, // Back to major units for display
		Currency: order.Currency,              // Currency code
		KeyID:    s.gateway.KeyID(),           // Checkout key
	}, nil
}

// VerifyResult is the outcome of verifying a payment
type VerifyResult struct {
	TransactionID uint // Completed transaction
	TokensAdded   int  // Tokens credited by this call, 0 when already terminal
	Tokens        int  // Current balance after the call
}

// VerifyPayment checks the gateway signature for an order and settles
// its transaction. Completion is a conditional update keyed on pending
// status, so re-verifying an already terminal transaction credits
// nothing and still reports success.
func (s *Service) VerifyPayment(user *domain.User, orderID, paymentID, signature string) (*VerifyResult, error) {
	if s.gateway == nil {
		// Offline mode has nothing to verify; orders completed already
		tokens, err := s.ledger.Balance(user.ID)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Tokens: tokens}, nil
	}

	var tx domain.Transaction
	if err := s.db.First(&tx, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if err := s.gateway.VerifySignature(orderID, paymentID, signature); err != nil {
		// Invalid signature fails the transaction; terminal rows stay put
		s.db.Model(&domain.Transaction{}).
			Where("id = ? AND status = ?", tx.ID, domain.StatusPending).
			Update("status", domain.StatusFailed)
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID, // Verifying user
			"order_id": orderID, // Gateway order id
		}).Warn("Payment verification failed")
		return nil, ErrVerificationFailed
	}

	credited := 0
	err := s.db.Transaction(func(dbtx *gorm.DB) error {
		// Guard against double-crediting: only a pending row completes
		res := dbtx.Model(&domain.Transaction{}).
			Where("id = ? AND status = ?", tx.ID, domain.StatusPending).
			Updates(map[string]any{
				"status":     domain.StatusCompleted, // Terminal state
				"payment_id": paymentID,              // Gateway payment id
				"signature":  signature,              // Verified signature
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // Already terminal, nothing to credit
		}
		credited = tx.TokensPurchased
		return s.ledger.WithTx(dbtx).Credit(user.ID, tx.TokensPurchased)
	})
	if err != nil {
		return nil, err
	}

	tokens, err := s.ledger.Balance(user.ID)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":        user.ID,  // Verifying user
		"order_id":       orderID,  // Gateway order id
		"transaction_id": tx.ID,    // Settled transaction
		"tokens_added":   credited, // Zero on re-verification
	}).Info("Payment verified")
	return &VerifyResult{
		TransactionID: tx.ID,    // Settled transaction
		TokensAdded:   credited, // Credited exactly once
		Tokens:        tokens,   // Current balance
	}, nil
}

// ListTransactions returns the user's transactions, newest first
func (s *Service) ListTransactions(userID uint) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&txs).Error
	return txs, err
}
