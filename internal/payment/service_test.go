package payment

import (
	"testing"

	"github.com/learner420/quizify/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeGateway is an in-memory Gateway for tests
type fakeGateway struct {
	orderErr   error  // Returned by CreateOrder
	verifyErr  error  // Returned by VerifySignature
	lastOrder  string // Last created order id
	orderCount int    // Number of orders created
}

func (f *fakeGateway) CreateOrder(amount int, currency, receipt string) (*Order, error) {
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orderCount++
	f.lastOrder = "order_fake_1"
	return &Order{ID: f.lastOrder, Amount: amount, Currency: currency}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	return f.verifyErr
}

func (f *fakeGateway) KeyID() string { return "rzp_test_key" }

func newTestService(t *testing.T, gateway Gateway) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Transaction{}, &domain.TokenPackage{}))
	require.NoError(t, db.Create(&domain.TokenPackage{Name: "basic", Amount: 99, Tokens: 10}).Error)
	return NewService(db, gateway), db
}

func newBuyer(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	user := &domain.User{Username: "buyer", Email: "buyer@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateOrder_UnknownPackage(t *testing.T) {
	svc, db := newTestService(t, &fakeGateway{})
	user := newBuyer(t, db)

	_, err := svc.CreateOrder(user, "platinum")
	assert.ErrorIs(t, err, ErrUnknownPackage)
}

func TestCreateOrder_Offline(t *testing.T) {
	svc, db := newTestService(t, nil)
	user := newBuyer(t, db)

	result, err := svc.CreateOrder(user, "basic")
	require.NoError(t, err)

	assert.True(t, result.Offline)
	assert.Equal(t, 10, result.TokensAdded)
	assert.Equal(t, 10, result.Tokens)

	// The transaction completes immediately in offline mode
	var tx domain.Transaction
	require.NoError(t, db.First(&tx, "user_id = ?", user.ID).Error)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.Equal(t, 10, tx.TokensPurchased)
}

func TestCreateOrder_Gateway(t *testing.T) {
	gateway := &fakeGateway{}
	svc, db := newTestService(t, gateway)
	user := newBuyer(t, db)

	result, err := svc.CreateOrder(user, "basic")
	require.NoError(t, err)

	assert.False(t, result.Offline)
	assert.Equal(t, "order_fake_1", result.OrderID)
	assert.InDelta(t, 99.0, result.Amount, 0.001)
	assert.Equal(t, "rzp_test_key", result.KeyID)

	// The transaction is pending and no tokens were credited
	var tx domain.Transaction
	require.NoError(t, db.First(&tx, "order_id = ?", result.OrderID).Error)
	assert.Equal(t, domain.StatusPending, tx.Status)

	var buyer domain.User
	require.NoError(t, db.First(&buyer, user.ID).Error)
	assert.Zero(t, buyer.Tokens)
}

func TestVerifyPayment_CreditsOnce(t *testing.T) {
	gateway := &fakeGateway{}
	svc, db := newTestService(t, gateway)
	user := newBuyer(t, db)

	order, err := svc.CreateOrder(user, "basic")
	require.NoError(t, err)

	first, err := svc.VerifyPayment(user, order.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	assert.Equal(t, 10, first.TokensAdded)
	assert.Equal(t, 10, first.Tokens)

	// Re-verifying a completed transaction must not double-credit
	second, err := svc.VerifyPayment(user, order.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	assert.Zero(t, second.TokensAdded)
	assert.Equal(t, 10, second.Tokens)

	var buyer domain.User
	require.NoError(t, db.First(&buyer, user.ID).Error)
	assert.Equal(t, 10, buyer.Tokens)

	var tx domain.Transaction
	require.NoError(t, db.First(&tx, "order_id = ?", order.OrderID).Error)
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.Equal(t, "pay_1", tx.PaymentID)
}

func TestVerifyPayment_BadSignatureFailsTransaction(t *testing.T) {
	gateway := &fakeGateway{verifyErr: ErrSignatureMismatch}
	svc, db := newTestService(t, gateway)
	user := newBuyer(t, db)

	order, err := svc.CreateOrder(user, "basic")
	require.NoError(t, err)

	_, err = svc.VerifyPayment(user, order.OrderID, "pay_1", "bad")
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// The transaction is failed and nothing was credited
	var tx domain.Transaction
	require.NoError(t, db.First(&tx, "order_id = ?", order.OrderID).Error)
	assert.Equal(t, domain.StatusFailed, tx.Status)

	var buyer domain.User
	require.NoError(t, db.First(&buyer, user.ID).Error)
	assert.Zero(t, buyer.Tokens)

	// A failed transaction stays failed even if a later signature passes
	gateway.verifyErr = nil
	result, err := svc.VerifyPayment(user, order.OrderID, "pay_1", "sig")
	require.NoError(t, err)
	assert.Zero(t, result.TokensAdded)
	require.NoError(t, db.First(&tx, "order_id = ?", order.OrderID).Error)
	assert.Equal(t, domain.StatusFailed, tx.Status)
}

func TestVerifyPayment_UnknownOrder(t *testing.T) {
	svc, db := newTestService(t, &fakeGateway{})
	user := newBuyer(t, db)

	_, err := svc.VerifyPayment(user, "order_missing", "pay_1", "sig")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestPackagesRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, nil)

	require.NoError(t, svc.UpsertPackage("premium", 499, 75))
	require.NoError(t, svc.UpsertPackage("basic", 149, 15))

	packages, err := svc.Packages()
	require.NoError(t, err)
	require.Len(t, packages, 2)
	assert.Equal(t, 75, packages["premium"].Tokens)
	assert.Equal(t, 149, packages["basic"].Amount)
}

func TestListTransactions_NewestFirst(t *testing.T) {
	svc, db := newTestService(t, nil)
	user := newBuyer(t, db)

	_, err := svc.CreateOrder(user, "basic")
	require.NoError(t, err)
	_, err = svc.CreateOrder(user, "basic")
	require.NoError(t, err)

	txs, err := svc.ListTransactions(user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.GreaterOrEqual(t, txs[0].CreatedAt.UnixNano(), txs[1].CreatedAt.UnixNano())
}
