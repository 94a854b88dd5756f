package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Mock is the development gateway.  It issues deterministic-looking
// order references without network traffic and accepts any payment
// reference carrying the mock prefix, so the full reserve/pay/
// confirm flow can be exercised locally.
type Mock struct{}

// NewMock returns the mock gateway.
func NewMock() *Mock { return &Mock{} }

// CreateOrder fabricates an order reference.
func (Mock) CreateOrder(_ context.Context, _ uint32, _, _ string) (string, error) {
	return "order_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16], nil
}

// Verify accepts payment references created by the mock checkout.
func (Mock) Verify(orderRef, paymentRef, _ string) bool {
	return strings.HasPrefix(orderRef, "order_mock_") && strings.HasPrefix(paymentRef, "pay_mock_")
}
