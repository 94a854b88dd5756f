package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

func newSweeper(e *engine) *service.Sweeper {
	return service.NewSweeper(e.bookings, e.seats, e.notifier, e.clock, time.Minute)
}

func TestSweep_CancelsExpiredPending(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"2A", "2B"}, passenger)
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL + time.Second)
	require.NoError(t, newSweeper(e).Sweep(ctx))

	got, err := e.bookings.ByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	seat, _ := e.seats.Seat(3)
	assert.Nil(t, seat.HoldUserID)

	assert.Equal(t, []string{service.NotifyBookingExpired}, e.notifier.kinds())
}

func TestSweep_LeavesLiveHoldsAlone(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL / 2)
	require.NoError(t, newSweeper(e).Sweep(ctx))

	got, err := e.bookings.ByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status)

	seat, _ := e.seats.Seat(1)
	assert.NotNil(t, seat.HoldUserID)
}

func TestSweep_Idempotent(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL + time.Second)
	sweeper := newSweeper(e)
	require.NoError(t, sweeper.Sweep(ctx))
	require.NoError(t, sweeper.Sweep(ctx))

	// Only one expiry notification despite two passes.
	assert.Equal(t, []string{service.NotifyBookingExpired}, e.notifier.kinds())
}

func TestSweep_ClearsOrphanHolds(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	// Simulate a crash between acquire and booking commit: a lapsed
	// hold with no owning booking.
	_, err := e.seats.TryAcquire(ctx, []uint64{4}, passengerOne, testHoldTTL, e.clock.Now())
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL + time.Second)
	require.NoError(t, newSweeper(e).Sweep(ctx))

	seat, _ := e.seats.Seat(4)
	assert.Nil(t, seat.HoldUserID)
	assert.Nil(t, seat.HoldExpiresAt)
}

func TestSweep_CompletesDepartedConfirmed(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1B"}, passenger)
	require.NoError(t, err)
	_, err = e.svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)

	e.clock.Advance(9 * time.Hour) // past departure
	require.NoError(t, newSweeper(e).Sweep(ctx))

	got, err := e.bookings.ByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, got.Status)

	// Completion keeps the seat booked.
	seat, _ := e.seats.Seat(2)
	assert.True(t, seat.Booked)
}

func TestSweep_ConfirmLosesRaceToSweep(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL + time.Second)
	require.NoError(t, newSweeper(e).Sweep(ctx))

	_, err = e.svc.Confirm(ctx, booking.ID)
	var transition *service.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}
