package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-booking/internal/gateway"
	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

func newPaymentEngine(e *engine) (*service.PaymentService, *memPayments) {
	payments := newMemPayments()
	svc := service.NewPaymentService(payments, e.svc, e.bookings, gateway.NewMock(), e.clock, "INR", 5*time.Second)
	return svc, payments
}

func TestCreateIntent_CreatesPendingPayment(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	svc, _ := newPaymentEngine(e)

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A", "1B"}, passenger)
	require.NoError(t, err)

	payment, err := svc.CreateIntent(ctx, passengerOne, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, payment.Status)
	assert.Equal(t, booking.TotalAmountCents, payment.AmountCents)
	assert.Equal(t, "INR", payment.Currency)
	assert.True(t, strings.HasPrefix(payment.GatewayOrderID, "order_mock_"))
}

func TestCreateIntent_IdempotentWhilePending(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	svc, _ := newPaymentEngine(e)

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	first, err := svc.CreateIntent(ctx, passengerOne, booking.ID)
	require.NoError(t, err)
	second, err := svc.CreateIntent(ctx, passengerOne, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
}

func TestCreateIntent_Guards(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	svc, _ := newPaymentEngine(e)

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	// Not the owner: booking existence is not revealed.
	_, err = svc.CreateIntent(ctx, passengerTwo, booking.ID)
	assert.ErrorIs(t, err, service.ErrBookingNotFound)

	// Confirmed bookings are no longer payable.
	_, err = e.svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)
	_, err = svc.CreateIntent(ctx, passengerOne, booking.ID)
	assert.ErrorIs(t, err, service.ErrBookingNotPayable)
}

func TestConfirmPayment_Success(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	svc, payments := newPaymentEngine(e)

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A", "2A"}, passenger)
	require.NoError(t, err)
	_, err = svc.CreateIntent(ctx, passengerOne, booking.ID)
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, passengerOne, booking.ID, "pay_mock_123", "sig")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)

	payment, err := payments.ByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, payment.Status)
	assert.Equal(t, "pay_mock_123", payment.GatewayPaymentID)

	// Seats were finalized by the booking confirmation.
	seat, _ := e.seats.Seat(1)
	assert.True(t, seat.Booked)
}

func TestConfirmPayment_BadSignatureMarksFailed(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	svc, payments := newPaymentEngine(e)

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)
	_, err = svc.CreateIntent(ctx, passengerOne, booking.ID)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, passengerOne, booking.ID, "bogus_ref", "sig")
	assert.ErrorIs(t, err, service.ErrPaymentVerificationFailed)

	payment, err := payments.ByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, payment.Status)

	// The booking and its seats stay untouched.
	got, err := e.bookings.ByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status)
}

func TestConfirmPayment_DoubleConfirm(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	svc, _ := newPaymentEngine(e)

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)
	_, err = svc.CreateIntent(ctx, passengerOne, booking.ID)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, passengerOne, booking.ID, "pay_mock_1", "sig")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, passengerOne, booking.ID, "pay_mock_1", "sig")
	assert.ErrorIs(t, err, service.ErrPaymentAlreadyCompleted)
}

func TestConfirmPayment_ExpiredLockRefused(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	svc, _ := newPaymentEngine(e)

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)
	_, err = svc.CreateIntent(ctx, passengerOne, booking.ID)
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL + time.Minute)

	_, err = svc.Confirm(ctx, passengerOne, booking.ID, "pay_mock_1", "sig")
	assert.ErrorIs(t, err, service.ErrLockExpired)
}
