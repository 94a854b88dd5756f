package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment tracks the gateway transaction for a booking.  There is at
// most one payment per booking (booking_id is unique) and its amount
// is copied from the booking total at creation, never edited
// independently.  A gateway timeout leaves the record pending so a
// retry or the sweeper can resolve it; only a verified rejection
// marks it failed.
//
// Fields:
//  ID               – primary key (UUID).
//  BookingID        – booking this payment settles (unique).
//  AmountCents      – amount copied from Booking.TotalAmountCents.
//  Currency         – ISO currency code.
//  Status           – current lifecycle state.
//  GatewayOrderID   – order reference issued by the gateway.
//  GatewayPaymentID – payment reference returned on completion.
//  GatewaySignature – signature provided with the completion callback.
//  ErrorMessage     – gateway error detail for failed payments.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Payment struct {
	ID               uuid.UUID     // payments.id
	BookingID        uuid.UUID     // payments.booking_id
	AmountCents      uint32        // payments.amount_cents
	Currency         string        // payments.currency
	Status           PaymentStatus // payments.status
	GatewayOrderID   string        // payments.gateway_order_id
	GatewayPaymentID string        // payments.gateway_payment_id
	GatewaySignature string        // payments.gateway_signature
	ErrorMessage     string        // payments.error_message
	CreatedAt        time.Time     // payments.created_at
	UpdatedAt        time.Time     // payments.updated_at
}
