package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-booking/internal/model"
)

// PassengerDetails carries the contact information captured with a
// reservation and printed on the ticket.
type PassengerDetails struct {
	Name  string
	Phone string
	Email string
}

// BookingService is the reservation coordinator and booking state
// machine.  Reserve is the contention point of the whole system: it
// funnels every competing claim on a seat set through the seat
// store's atomic acquire.  Confirm, Cancel and Complete advance the
// booking lifecycle with compare-and-set transitions and apply the
// seat side effect of each transition.
type BookingService struct {
	trips    TripStore
	seats    SeatStore
	bookings BookingStore
	notifier Notifier
	clock    Clock
	holdTTL  time.Duration
}

// NewBookingService wires the coordinator.  holdTTL bounds how long
// a pending booking keeps its seats before the sweeper reclaims
// them; zero falls back to the 10 minute default.
func NewBookingService(trips TripStore, seats SeatStore, bookings BookingStore, notifier Notifier, clock Clock, holdTTL time.Duration) *BookingService {
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &BookingService{
		trips:    trips,
		seats:    seats,
		bookings: bookings,
		notifier: notifier,
		clock:    clock,
		holdTTL:  holdTTL,
	}
}

// Reserve places a hold on the requested seats and creates a pending
// booking owning them.  The seat labels are deduplicated before
// validation.  On conflict the returned *SeatsUnavailableError names
// every seat that was lost, not just the first, so the client can
// reselect in one round trip.
//
// Hold acquisition and booking creation form one atomic unit: if the
// booking insert fails after the holds were placed, the holds are
// released again so no seat is ever left held without an owning
// booking.
func (s *BookingService) Reserve(ctx context.Context, userID, tripID uint64, seatLabels []string, passenger PassengerDetails) (model.Booking, error) {
	trip, err := s.trips.ByID(ctx, tripID)
	if err != nil {
		return model.Booking{}, err
	}
	if !trip.IsActive {
		return model.Booking{}, ErrTripInactive
	}

	labels := dedupeLabels(seatLabels)
	if len(labels) == 0 || len(labels) > MaxSeatsPerBooking {
		return model.Booking{}, ErrInvalidSeatCount
	}

	seats, err := s.seats.ByLabels(ctx, tripID, labels)
	if err != nil {
		return model.Booking{}, fmt.Errorf("resolve seats: %w", err)
	}
	if len(seats) != len(labels) {
		return model.Booking{}, ErrSeatNotFound
	}
	seatIDs := make([]uint64, len(seats))
	for i, seat := range seats {
		seatIDs[i] = seat.ID
	}

	now := s.clock.Now()
	expiresAt, err := s.seats.TryAcquire(ctx, seatIDs, userID, s.holdTTL, now)
	if err != nil {
		return model.Booking{}, err
	}

	count := uint32(len(seatIDs))
	booking := model.Booking{
		ID:                uuid.New(),
		UserID:            userID,
		TripID:            tripID,
		PassengerName:     passenger.Name,
		PassengerPhone:    passenger.Phone,
		PassengerEmail:    passenger.Email,
		SeatCount:         count,
		PricePerSeatCents: trip.PriceCents,
		TotalAmountCents:  trip.PriceCents * count,
		Status:            model.BookingPending,
		LockExpiresAt:     expiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.bookings.Create(ctx, &booking, seatIDs); err != nil {
		// Compensating rollback: the holds must not outlive a booking
		// that never existed.
		if relErr := s.seats.Release(ctx, seatIDs); relErr != nil {
			return model.Booking{}, fmt.Errorf("create booking: %w (release holds: %v)", err, relErr)
		}
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	return booking, nil
}

// Confirm transitions a pending booking to confirmed and finalizes
// its seats (hold -> permanently booked).  Confirming an expired
// pending booking fails with ErrLockExpired even if the sweeper has
// not run yet.  The status flip is a compare-and-set; losing the
// race against a concurrent cancel or sweep yields
// *InvalidTransitionError.
func (s *BookingService) Confirm(ctx context.Context, bookingID uuid.UUID) (model.Booking, error) {
	booking, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if booking.Status != model.BookingPending {
		return model.Booking{}, &InvalidTransitionError{From: booking.Status, To: model.BookingConfirmed}
	}
	if booking.LockExpired(s.clock.Now()) {
		return model.Booking{}, ErrLockExpired
	}

	won, err := s.bookings.UpdateStatus(ctx, bookingID, model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return model.Booking{}, fmt.Errorf("confirm booking: %w", err)
	}
	if !won {
		return model.Booking{}, &InvalidTransitionError{From: booking.Status, To: model.BookingConfirmed}
	}

	seatIDs, err := s.bookings.SeatIDs(ctx, bookingID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("load booking seats: %w", err)
	}
	if err := s.seats.Finalize(ctx, seatIDs); err != nil {
		return model.Booking{}, fmt.Errorf("finalize seats: %w", err)
	}

	booking.Status = model.BookingConfirmed
	if s.notifier != nil {
		s.notifier.Notify(ctx, booking.UserID, NotifyBookingConfirmed, map[string]any{
			"booking_id":   booking.ID.String(),
			"trip_id":      booking.TripID,
			"amount_cents": booking.TotalAmountCents,
		})
	}
	return booking, nil
}

// Cancel transitions a booking the given user owns from pending or
// confirmed to cancelled and releases its seats back to the pool.
// Cancellation is refused once the trip has departed.
func (s *BookingService) Cancel(ctx context.Context, userID uint64, bookingID uuid.UUID) (model.Booking, error) {
	booking, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if booking.UserID != userID {
		return model.Booking{}, ErrBookingNotFound
	}
	if booking.Status != model.BookingPending && booking.Status != model.BookingConfirmed {
		return model.Booking{}, &InvalidTransitionError{From: booking.Status, To: model.BookingCancelled}
	}

	trip, err := s.trips.ByID(ctx, booking.TripID)
	if err != nil {
		return model.Booking{}, err
	}
	if trip.Departed(s.clock.Now()) {
		return model.Booking{}, ErrTripDeparted
	}

	cancelled, err := s.cancel(ctx, booking)
	if err != nil {
		return model.Booking{}, err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, booking.UserID, NotifyBookingCancelled, map[string]any{
			"booking_id": booking.ID.String(),
			"trip_id":    booking.TripID,
		})
	}
	return cancelled, nil
}

// cancel performs the guarded transition and seat release shared by
// user cancellation and the expiry sweep.  The caller has already
// checked its own preconditions; here only the compare-and-set
// decides who wins.
func (s *BookingService) cancel(ctx context.Context, booking model.Booking) (model.Booking, error) {
	won, err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, model.BookingCancelled)
	if err != nil {
		return model.Booking{}, fmt.Errorf("cancel booking: %w", err)
	}
	if !won {
		return model.Booking{}, &InvalidTransitionError{From: booking.Status, To: model.BookingCancelled}
	}

	seatIDs, err := s.bookings.SeatIDs(ctx, booking.ID)
	if err != nil {
		return model.Booking{}, fmt.Errorf("load booking seats: %w", err)
	}
	if err := s.seats.Release(ctx, seatIDs); err != nil {
		return model.Booking{}, fmt.Errorf("release seats: %w", err)
	}
	booking.Status = model.BookingCancelled
	return booking, nil
}

// Complete transitions a confirmed booking whose trip has departed
// to the terminal completed state.  Pure bookkeeping: seats stay
// booked.
func (s *BookingService) Complete(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status != model.BookingConfirmed {
		return &InvalidTransitionError{From: booking.Status, To: model.BookingCompleted}
	}
	trip, err := s.trips.ByID(ctx, booking.TripID)
	if err != nil {
		return err
	}
	if !trip.Departed(s.clock.Now()) {
		return &InvalidTransitionError{From: booking.Status, To: model.BookingCompleted}
	}
	won, err := s.bookings.UpdateStatus(ctx, bookingID, model.BookingConfirmed, model.BookingCompleted)
	if err != nil {
		return fmt.Errorf("complete booking: %w", err)
	}
	if !won {
		return &InvalidTransitionError{From: booking.Status, To: model.BookingCompleted}
	}
	return nil
}

// normalizeLabel canonicalizes a client-sent seat label ("1a " ->
// "1A") so lookups match the stored form.
func normalizeLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}

// dedupeLabels trims, uppercases and deduplicates the requested seat
// labels preserving request order.
func dedupeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = normalizeLabel(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
