package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

// Razorpay talks to the Razorpay orders API over HTTPS and verifies
// payment signatures with the shared key secret.  The HTTP client's
// timeout bounds order creation; signature verification is a local
// HMAC comparison.
type Razorpay struct {
	keyID     string
	keySecret string
	client    *http.Client
}

// NewRazorpay builds a client with the given API credentials.  A
// non-positive timeout falls back to 10 seconds.
func NewRazorpay(keyID, keySecret string, timeout time.Duration) *Razorpay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Razorpay{
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: timeout},
	}
}

// CreateOrder posts an order to Razorpay and returns its id.
func (g *Razorpay) CreateOrder(ctx context.Context, amountCents uint32, currency, receipt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, razorpayBaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("razorpay create order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("razorpay create order: status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("razorpay create order: decode: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("razorpay create order: empty order id")
	}
	return out.ID, nil
}

// Verify checks the HMAC-SHA256 signature Razorpay computes over
// "order_id|payment_id" with the key secret.
func (g *Razorpay) Verify(orderRef, paymentRef, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
