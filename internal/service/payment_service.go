package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-booking/internal/gateway"
	"github.com/iliyamo/bus-seat-booking/internal/model"
)

// PaymentService is the payment gate: it binds the one payment
// record a booking may have, forwards order creation to the external
// gateway, and on verified success drives the booking confirm
// transition.  A gateway timeout leaves the payment pending so the
// client can retry or the sweeper can reclaim the booking; timeouts
// are never treated as verified failure.
type PaymentService struct {
	payments PaymentStore
	bookings *BookingService
	store    BookingStore
	gateway  gateway.Gateway
	clock    Clock
	currency string
	timeout  time.Duration
}

// NewPaymentService wires the payment gate.  currency defaults to
// INR and timeout to 10 seconds when unset.
func NewPaymentService(payments PaymentStore, bookings *BookingService, store BookingStore, gw gateway.Gateway, clock Clock, currency string, timeout time.Duration) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &PaymentService{
		payments: payments,
		bookings: bookings,
		store:    store,
		gateway:  gw,
		clock:    clock,
		currency: currency,
		timeout:  timeout,
	}
}

// CreateIntent returns the payment record the client needs to open
// checkout for a pending booking it owns.  The call is an idempotent
// retry point: an existing pending payment is returned unchanged and
// a completed one is refused.
func (s *PaymentService) CreateIntent(ctx context.Context, userID uint64, bookingID uuid.UUID) (model.Payment, error) {
	booking, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return model.Payment{}, err
	}
	if booking.UserID != userID {
		return model.Payment{}, ErrBookingNotFound
	}
	if booking.Status != model.BookingPending {
		return model.Payment{}, ErrBookingNotPayable
	}

	existing, err := s.payments.ByBookingID(ctx, bookingID)
	switch {
	case err == nil:
		if existing.Status == model.PaymentCompleted {
			return model.Payment{}, ErrPaymentAlreadyCompleted
		}
		return existing, nil
	case errors.Is(err, ErrPaymentNotFound):
		// fall through to creation
	default:
		return model.Payment{}, err
	}

	orderCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	orderRef, err := s.gateway.CreateOrder(orderCtx, booking.TotalAmountCents, s.currency, booking.ID.String())
	if err != nil {
		return model.Payment{}, fmt.Errorf("create gateway order: %w", err)
	}

	now := s.clock.Now()
	payment := model.Payment{
		ID:             uuid.New(),
		BookingID:      booking.ID,
		AmountCents:    booking.TotalAmountCents,
		Currency:       s.currency,
		Status:         model.PaymentPending,
		GatewayOrderID: orderRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		return model.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return payment, nil
}

// Confirm verifies the gateway callback for a booking the user owns
// and, on success, marks the payment completed and confirms the
// booking.  On verification failure the payment is marked failed and
// the booking and its seats stay untouched.
func (s *PaymentService) Confirm(ctx context.Context, userID uint64, bookingID uuid.UUID, paymentRef, signature string) (model.Booking, error) {
	booking, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if booking.UserID != userID {
		return model.Booking{}, ErrBookingNotFound
	}

	payment, err := s.payments.ByBookingID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if payment.Status == model.PaymentCompleted {
		return model.Booking{}, ErrPaymentAlreadyCompleted
	}

	if !s.gateway.Verify(payment.GatewayOrderID, paymentRef, signature) {
		if err := s.payments.MarkFailed(ctx, payment.ID, "signature verification failed"); err != nil {
			return model.Booking{}, fmt.Errorf("mark payment failed: %w", err)
		}
		return model.Booking{}, ErrPaymentVerificationFailed
	}

	completed, err := s.payments.MarkCompleted(ctx, payment.ID, paymentRef, signature)
	if err != nil {
		return model.Booking{}, fmt.Errorf("mark payment completed: %w", err)
	}
	if !completed {
		return model.Booking{}, ErrPaymentAlreadyCompleted
	}

	return s.bookings.Confirm(ctx, bookingID)
}
