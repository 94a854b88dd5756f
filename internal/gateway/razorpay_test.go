package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayVerify(t *testing.T) {
	g := NewRazorpay("key_id", "key_secret", time.Second)

	sig := sign("key_secret", "order_123", "pay_456")
	assert.True(t, g.Verify("order_123", "pay_456", sig))

	assert.False(t, g.Verify("order_123", "pay_456", "deadbeef"))
	assert.False(t, g.Verify("order_999", "pay_456", sig))
	assert.False(t, g.Verify("order_123", "pay_456", sign("other_secret", "order_123", "pay_456")))
}

func TestMockGateway(t *testing.T) {
	g := NewMock()

	ref, err := g.CreateOrder(context.Background(), 45000, "INR", "receipt-1")
	require.NoError(t, err)
	assert.Contains(t, ref, "order_mock_")

	assert.True(t, g.Verify(ref, "pay_mock_abc", ""))
	assert.False(t, g.Verify(ref, "pay_real_abc", ""))
	assert.False(t, g.Verify("order_live_1", "pay_mock_abc", ""))
}
