package payment

import (
	"bytes"         // Request body buffers
	"crypto/hmac"   // Signature verification
	"crypto/sha256" // Signature hash
	"encoding/hex"  // Signature encoding
	"encoding/json" // Gateway wire format
	"errors"        // Sentinel errors
	"fmt"           // Error wrapping
	"net/http"      // Gateway HTTP client
	"time"          // Request timeout
)

// ErrSignatureMismatch is returned when a payment signature is invalid
var ErrSignatureMismatch = errors.New("payment signature mismatch")

// Order is a payment order created at the gateway
type Order struct {
	ID       string `json:"id"`       // Gateway order id
	Amount   int    `json:"amount"`   // Amount in minor currency units
	Currency string `json:"currency"` // Currency code
}

// Gateway is the payment provider boundary. It is injected so the
// purchase flow never depends on network liveness directly.
type Gateway interface {
	CreateOrder(amount int, currency, receipt string) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) error
	KeyID() string
}

// RazorpayGateway talks to the Razorpay orders API
type RazorpayGateway struct {
	keyID     string       // API key id
	keySecret string       // API key secret
	baseURL   string       // API base URL
	client    *http.Client // HTTP client with an explicit timeout
}

// NewRazorpayGateway creates a gateway client for the given credentials
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     keyID,                                   // API key id
		keySecret: keySecret,                               // API key secret
		baseURL:   "https://api.razorpay.com/v1",           // Production endpoint
		client:    &http.Client{Timeout: 10 * time.Second}, // Bounded network calls
	}
}

// KeyID returns the public key id for checkout rendering
func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

// CreateOrder creates an order at the gateway
func (g *RazorpayGateway) CreateOrder(amount int, currency, receipt string) (*Order, error) {
	payload, err := json.Marshal(map[string]any{
		"amount":   amount,   // Minor currency units
		"currency": currency, // Currency code
		"receipt":  receipt,  // Caller-supplied receipt id
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, g.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret) // Razorpay uses basic auth
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay order: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("razorpay order: unexpected status %d", resp.StatusCode)
	}
	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("razorpay order: %w", err)
	}
	return &order, nil
}

// VerifySignature checks the checkout callback signature, which is an
// HMAC-SHA256 of "<order_id>|<payment_id>" under the key secret
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID)) // Documented signing payload
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch // Constant-time comparison failed
	}
	return nil
}
