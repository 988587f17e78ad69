package api

import (
	"context"  // Context for Redis operations
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes
	"strconv"  // Cache key construction
	"time"     // Cache TTLs

	"github.com/learner420/quizify/internal/domain"  // Importing domain models
	"github.com/learner420/quizify/internal/payment" // Purchase flow
	"github.com/learner420/quizify/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// PackagesHandler lists the purchasable token packages
func PackagesHandler(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		packages, err := svc.Packages() // Read from the package table
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch packages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"packages": packages})
	}
}

// CreateOrderRequest is the order creation payload
type CreateOrderRequest struct {
	Package string `json:"package" binding:"required"` // Package name must be provided
}

// CreateOrderHandler starts a token purchase
func CreateOrderHandler(db *gorm.DB, svc *payment.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		var req CreateOrderRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Package selection is required"})
			return
		}
		result, err := svc.CreateOrder(user, req.Package)
		if err != nil {
			if errors.Is(err, payment.ErrUnknownPackage) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid package selected"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// A new transaction invalidates the cached history
		invalidateTxCache(c, rdb, user.ID)
		if result.Offline {
			// Offline mode credited the tokens immediately
			c.JSON(http.StatusOK, gin.H{
				"message":        "Test mode: Tokens added successfully",
				"tokens_added":   result.TokensAdded, // Tokens credited
				"current_tokens": result.Tokens,      // Current balance
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order_id": result.OrderID,  // Gateway order id
			"amount":   result.Amount,   // Price in major units
			"currency": result.Currency, // Currency code
			"key_id":   result.KeyID,    // Checkout key
		})
	}
}

// VerifyPaymentRequest is the verification payload
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`   // Gateway order id
	PaymentID string `json:"razorpay_payment_id" binding:"required"` // Gateway payment id
	Signature string `json:"razorpay_signature" binding:"required"`  // Gateway signature
}

// VerifyPaymentHandler settles a purchase after gateway checkout.
// Re-verifying an already completed transaction credits nothing.
func VerifyPaymentHandler(db *gorm.DB, svc *payment.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		if svc.Offline() {
			// Offline orders were settled at creation time
			c.JSON(http.StatusOK, gin.H{
				"message":        "Test mode: Payment verified successfully",
				"transaction_id": 0,           // Nothing to settle
				"tokens_added":   0,           // Nothing credited here
				"current_tokens": user.Tokens, // Current balance
			})
			return
		}
		var req VerifyPaymentRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing payment verification details"})
			return
		}
		result, err := svc.VerifyPayment(user, req.OrderID, req.PaymentID, req.Signature)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrTransactionNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			case errors.Is(err, payment.ErrVerificationFailed):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Payment verification failed"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		// Settlement invalidates the cached history
		invalidateTxCache(c, rdb, user.ID)
		c.JSON(http.StatusOK, gin.H{
			"message":        "Payment verified successfully",
			"transaction_id": result.TransactionID, // Settled transaction
			"tokens_added":   result.TokensAdded,   // Credited exactly once
			"current_tokens": result.Tokens,        // Current balance
		})
	}
}

// txHistory is the cached shape of a transaction history response
type txHistory struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
}

// TransactionsHandler returns the caller's purchase history
func TransactionsHandler(db *gorm.DB, svc *payment.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db) // Load the caller
		if !ok {
			return
		}
		ctx := context.Background() // Context for Redis operations
		cacheKey := "txhistory:user:" + strconv.Itoa(int(user.ID))
		var cached txHistory
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"cached":       true,                // Indicate response is from cache
			})
			return
		}
		txs, err := svc.ListTransactions(user.ID) // Newest first
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, txHistory{Transactions: txs}, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{
			"transactions": txs,   // List of transactions
			"cached":       false, // Indicate response is not from cache
		})
	}
}

// invalidateTxCache clears the cached transaction history after a write
func invalidateTxCache(c *gin.Context, rdb *redis.Client, userID uint) {
	if rdb == nil {
		return // Caching disabled
	}
	ctx := context.Background()
	_ = utils.DeleteCache(ctx, rdb, "txhistory:user:"+strconv.Itoa(int(userID)))
}
