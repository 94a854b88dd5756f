package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-booking/internal/model"
)

// TripStore resolves trips from the catalog.  The engine only reads
// trips; operator CRUD lives in the repository layer behind the
// operator handlers.
type TripStore interface {
	// ByID returns the trip or ErrTripNotFound.
	ByID(ctx context.Context, id uint64) (model.Trip, error)
}

// SeatStore is the seat lock store: the single mutual-exclusion
// point of the engine.  Implementations must evaluate TryAcquire for
// the whole seat set atomically so that two overlapping multi-seat
// requests can never deadlock each other with partial holds.
type SeatStore interface {
	// ByLabels resolves seats of a trip by label.  Seats missing from
	// the trip are simply absent from the result; the caller decides
	// whether that is an error.
	ByLabels(ctx context.Context, tripID uint64, labels []string) ([]model.Seat, error)

	// ByTrip returns every seat of the trip ordered by row and column.
	ByTrip(ctx context.Context, tripID uint64) ([]model.Seat, error)

	// TryAcquire places a hold on every listed seat for the holder, or
	// on none of them.  A seat conflicts when it is booked or carries
	// any hold that has not lapsed at now, including one from the same
	// holder, so a seat can never belong to two pending bookings.  On
	// conflict it returns *SeatsUnavailableError naming every
	// conflicting seat.  On success it returns the common hold expiry
	// (now + ttl).
	TryAcquire(ctx context.Context, seatIDs []uint64, holderID uint64, ttl time.Duration, now time.Time) (time.Time, error)

	// Release clears holds and booked flags on the listed seats,
	// returning them to the available pool.  Releasing an already free
	// seat is a no-op.
	Release(ctx context.Context, seatIDs []uint64) error

	// Finalize converts holds on the listed seats into the permanent
	// booked state, clearing the hold fields.
	Finalize(ctx context.Context, seatIDs []uint64) error

	// OrphanHoldSeatIDs lists seats whose hold lapsed before now, that
	// are not booked and that no pending booking owns.  Such holds can
	// be left behind by a crash between acquire and booking commit.
	OrphanHoldSeatIDs(ctx context.Context, now time.Time) ([]uint64, error)
}

// BookingStore persists bookings and their immutable seat sets.
type BookingStore interface {
	// Create persists the booking and one junction row per seat as a
	// single atomic unit.
	Create(ctx context.Context, b *model.Booking, seatIDs []uint64) error

	// ByID returns the booking or ErrBookingNotFound.
	ByID(ctx context.Context, id uuid.UUID) (model.Booking, error)

	// SeatIDs returns the ids of the seats owned by the booking.
	SeatIDs(ctx context.Context, id uuid.UUID) ([]uint64, error)

	// SeatLabels returns the seat labels of the booking ordered by row
	// and column, for tickets and responses.
	SeatLabels(ctx context.Context, id uuid.UUID) ([]string, error)

	// UpdateStatus performs the compare-and-set that guards every
	// lifecycle transition: the status moves from `from` to `to` only
	// if it still equals `from`, and the return value reports whether
	// this caller won the transition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus) (bool, error)

	// ExpiredPending lists pending bookings whose lock expired before
	// now, up to limit.
	ExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)

	// DepartedConfirmed lists confirmed bookings whose trip departed
	// before now, up to limit.
	DepartedConfirmed(ctx context.Context, now time.Time, limit int) ([]model.Booking, error)
}

// PaymentStore persists the one payment record a booking may have.
type PaymentStore interface {
	// ByBookingID returns the payment for a booking or ErrPaymentNotFound.
	ByBookingID(ctx context.Context, bookingID uuid.UUID) (model.Payment, error)

	// Create persists a new pending payment.
	Create(ctx context.Context, p *model.Payment) error

	// MarkCompleted records the gateway references and flips the status
	// pending -> completed.  Returns false when the payment was not
	// pending anymore.
	MarkCompleted(ctx context.Context, id uuid.UUID, paymentRef, signature string) (bool, error)

	// MarkFailed flips the status to failed and stores the gateway's
	// error message.
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
}

// TicketStore persists issued tickets.
type TicketStore interface {
	// ByBookingID returns the ticket for a booking or ErrTicketNotFound.
	ByBookingID(ctx context.Context, bookingID uuid.UUID) (model.Ticket, error)

	// Create persists a freshly minted ticket.
	Create(ctx context.Context, t *model.Ticket) error

	// MarkValidated atomically latches is_validated false -> true,
	// recording when and by whom.  Returns false when the ticket was
	// already validated, so two simultaneous scans resolve to exactly
	// one success.
	MarkValidated(ctx context.Context, bookingID uuid.UUID, by string, at time.Time) (bool, error)
}

// Notifier delivers fire-and-forget user notifications.  Failures
// are the notifier's own problem: no state transition is ever rolled
// back because a notification could not be delivered, which is why
// Notify returns nothing.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, kind string, payload map[string]any)
}

// Notification kinds emitted by the engine.
const (
	NotifyBookingConfirmed = "booking.confirmed"
	NotifyBookingCancelled = "booking.cancelled"
	NotifyBookingExpired   = "booking.expired"
	NotifyTicketValidated  = "ticket.validated"
)
