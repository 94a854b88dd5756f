// Package gateway abstracts the external payment collaborator.  Two
// interchangeable implementations exist: a Razorpay-style client for
// production and a deterministic mock for development and tests.
// Which one runs is decided by configuration at startup, never by
// inspecting types at runtime.
package gateway

import "context"

// Gateway creates payment orders and verifies completion callbacks.
// Only the outcome matters to the booking engine; the gateway's own
// order and signature protocol stays behind this interface.
type Gateway interface {
	// CreateOrder registers an order for the amount with the provider
	// and returns the provider's order reference.  Implementations
	// honour ctx cancellation and deadlines; a timeout error here must
	// leave the caller free to retry with the same receipt.
	CreateOrder(ctx context.Context, amountCents uint32, currency, receipt string) (string, error)

	// Verify reports whether the payment reference and signature
	// authentically complete the given order.  Verification is local
	// (signature check) and never blocks on the network.
	Verify(orderRef, paymentRef, signature string) bool
}
