package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

var passenger = service.PassengerDetails{Name: "Asha Rao", Phone: "+91 90000 00001", Email: "asha@example.com"}

func TestReserve_Success(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A", "1B"}, passenger)
	require.NoError(t, err)

	assert.Equal(t, model.BookingPending, booking.Status)
	assert.Equal(t, uint32(2), booking.SeatCount)
	assert.Equal(t, testPrice*2, booking.TotalAmountCents)
	assert.Equal(t, e.clock.Now().Add(testHoldTTL), booking.LockExpiresAt)

	seat, ok := e.seats.Seat(1)
	require.True(t, ok)
	require.NotNil(t, seat.HoldUserID)
	assert.Equal(t, passengerOne, *seat.HoldUserID)
	assert.False(t, seat.Booked)
}

func TestReserve_NormalizesAndDedupesLabels(t *testing.T) {
	e := newEngine()

	booking, err := e.svc.Reserve(context.Background(), passengerOne, testTripID, []string{" 1a ", "1A", "1b"}, passenger)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), booking.SeatCount)
}

func TestReserve_Conflict_ListsEveryContestedSeat(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A", "2A"}, passenger)
	require.NoError(t, err)

	_, err = e.svc.Reserve(ctx, passengerTwo, testTripID, []string{"1A", "1B", "2A"}, passenger)
	var unavailable *service.SeatsUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"1A", "2A"}, unavailable.Labels)

	// The losing request must leave no partial hold behind.
	seat, _ := e.seats.Seat(2) // 1B
	assert.Nil(t, seat.HoldUserID)
}

func TestReserve_SameUserCannotReserveHeldSeatAgain(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	first, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	// A second reservation over the user's own live hold would give
	// two pending bookings the same seat, with only the newer one
	// matching the hold expiry.
	_, err = e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	var unavailable *service.SeatsUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"1A"}, unavailable.Labels)

	// The first booking and its hold are untouched.
	seat, _ := e.seats.Seat(1)
	require.NotNil(t, seat.HoldExpiresAt)
	assert.Equal(t, first.LockExpiresAt, *seat.HoldExpiresAt)
	got, err := e.bookings.ByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status)
}

func TestReserve_ExpiredHoldIsReacquirable(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL + time.Second)

	booking, err := e.svc.Reserve(ctx, passengerTwo, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)
	assert.Equal(t, passengerTwo, booking.UserID)
}

func TestReserve_Validation(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	_, err := e.svc.Reserve(ctx, passengerOne, 999, []string{"1A"}, passenger)
	assert.ErrorIs(t, err, service.ErrTripNotFound)

	_, err = e.svc.Reserve(ctx, passengerOne, testTripID, nil, passenger)
	assert.ErrorIs(t, err, service.ErrInvalidSeatCount)

	tooMany := make([]string, service.MaxSeatsPerBooking+1)
	for i := range tooMany {
		tooMany[i] = string(rune('A'+i)) + "1"
	}
	_, err = e.svc.Reserve(ctx, passengerOne, testTripID, tooMany, passenger)
	assert.ErrorIs(t, err, service.ErrInvalidSeatCount)

	_, err = e.svc.Reserve(ctx, passengerOne, testTripID, []string{"9Z"}, passenger)
	assert.ErrorIs(t, err, service.ErrSeatNotFound)
}

func TestReserve_InactiveTrip(t *testing.T) {
	e := newEngine()
	trip, _ := e.trips.ByID(context.Background(), testTripID)
	trip.IsActive = false
	e.trips.Add(trip)

	_, err := e.svc.Reserve(context.Background(), passengerOne, testTripID, []string{"1A"}, passenger)
	assert.ErrorIs(t, err, service.ErrTripInactive)
}

func TestReserve_ReleasesHoldsWhenCreateFails(t *testing.T) {
	e := newEngine()
	e.bookings.failCreate = true

	_, err := e.svc.Reserve(context.Background(), passengerOne, testTripID, []string{"1A", "1B"}, passenger)
	require.Error(t, err)

	for _, id := range []uint64{1, 2} {
		seat, _ := e.seats.Seat(id)
		assert.Nil(t, seat.HoldUserID, "seat %d must not stay held", id)
	}
}

func TestReserve_ConcurrentOverlap_OneWinner(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	const attempts = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := e.svc.Reserve(ctx, user, testTripID, []string{"1A", "2B"}, passenger)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			var unavailable *service.SeatsUnavailableError
			if !errors.As(err, &unavailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(200 + i))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestConfirm_FinalizesSeats(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"2A", "2B"}, passenger)
	require.NoError(t, err)

	confirmed, err := e.svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)

	seat, _ := e.seats.Seat(3) // 2A
	assert.True(t, seat.Booked)
	assert.Nil(t, seat.HoldUserID)

	assert.Equal(t, []string{service.NotifyBookingConfirmed}, e.notifier.kinds())
}

func TestConfirm_ExpiredLock(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	e.clock.Advance(testHoldTTL + time.Minute)

	_, err = e.svc.Confirm(ctx, booking.ID)
	assert.ErrorIs(t, err, service.ErrLockExpired)
}

func TestConfirm_OnlyFromPending(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)
	_, err = e.svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)

	_, err = e.svc.Confirm(ctx, booking.ID)
	var transition *service.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.BookingConfirmed, transition.From)
}

func TestCancel_PendingReleasesSeats(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A", "1B"}, passenger)
	require.NoError(t, err)

	cancelled, err := e.svc.Cancel(ctx, passengerOne, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, cancelled.Status)

	seat, _ := e.seats.Seat(1)
	assert.Nil(t, seat.HoldUserID)
	assert.False(t, seat.Booked)

	// Seats are free to book again.
	_, err = e.svc.Reserve(ctx, passengerTwo, testTripID, []string{"1A", "1B"}, passenger)
	assert.NoError(t, err)
}

func TestCancel_ConfirmedReturnsSeatsToPool(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"2A"}, passenger)
	require.NoError(t, err)
	_, err = e.svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)

	_, err = e.svc.Cancel(ctx, passengerOne, booking.ID)
	require.NoError(t, err)

	seat, _ := e.seats.Seat(3)
	assert.False(t, seat.Booked)
}

func TestCancel_OwnershipAndDeparture(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)

	// Another user cannot see, let alone cancel, the booking.
	_, err = e.svc.Cancel(ctx, passengerTwo, booking.ID)
	assert.ErrorIs(t, err, service.ErrBookingNotFound)

	_, err = e.svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)

	e.clock.Advance(9 * time.Hour) // past departure

	_, err = e.svc.Cancel(ctx, passengerOne, booking.ID)
	assert.ErrorIs(t, err, service.ErrTripDeparted)
}

func TestCancel_TerminalStatesRejected(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)
	_, err = e.svc.Cancel(ctx, passengerOne, booking.ID)
	require.NoError(t, err)

	_, err = e.svc.Cancel(ctx, passengerOne, booking.ID)
	var transition *service.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestComplete_RequiresDeparture(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	booking, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"1A"}, passenger)
	require.NoError(t, err)
	_, err = e.svc.Confirm(ctx, booking.ID)
	require.NoError(t, err)

	var transition *service.InvalidTransitionError
	err = e.svc.Complete(ctx, booking.ID)
	require.ErrorAs(t, err, &transition)

	e.clock.Advance(9 * time.Hour)
	require.NoError(t, e.svc.Complete(ctx, booking.ID))

	got, err := e.bookings.ByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, got.Status)
}
