// Package service implements the seat reservation and booking
// lifecycle engine: placing time-bounded seat holds, advancing
// bookings through their state machine, reclaiming expired holds,
// settling payments and minting single-use tickets.  Persistence is
// reached only through the interfaces in ports.go so the engine can
// be exercised against the MySQL repositories or an in-memory store.
package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-booking/internal/model"
)

// Sentinel errors surfaced by the services.  Handlers translate
// these into HTTP responses; none of them indicates a fault in the
// service itself.
var (
	ErrTripNotFound     = errors.New("trip not found")
	ErrTripInactive     = errors.New("trip is not open for booking")
	ErrTripDeparted     = errors.New("trip has already departed")
	ErrSeatNotFound     = errors.New("one or more seats not found on this trip")
	ErrInvalidSeatCount = errors.New("between 1 and 10 distinct seats must be selected")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrLockExpired      = errors.New("seat lock has expired; reserve again")

	ErrPaymentNotFound           = errors.New("payment not found")
	ErrPaymentAlreadyCompleted   = errors.New("payment already completed for this booking")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	ErrTicketNotFound    = errors.New("ticket not found")
	ErrBookingNotPayable = errors.New("booking is not awaiting payment")
	ErrTicketNotIssuable = errors.New("tickets are only issued for confirmed bookings")
	ErrInvalidTicketCode = errors.New("unrecognized ticket payload")
)

// MaxSeatsPerBooking bounds a single reservation.  The limit keeps
// one passenger from holding an entire bus through checkout.
const MaxSeatsPerBooking = 10

// SeatsUnavailableError reports every seat of a reservation request
// that was booked or held by someone else, so the client can offer
// the passenger a reselection instead of a blind retry.
type SeatsUnavailableError struct {
	Labels []string
}

func (e *SeatsUnavailableError) Error() string {
	return "seats unavailable: " + strings.Join(e.Labels, ", ")
}

// InvalidTransitionError reports a booking state transition attempted
// from the wrong current status.  Under concurrent confirm/cancel/
// sweep races exactly one caller wins the compare-and-set; the others
// receive this error and should treat it as "already handled".
type InvalidTransitionError struct {
	From model.BookingStatus
	To   model.BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition %s -> %s", e.From, e.To)
}

// TicketValidatedError reports an attempt to validate a ticket that
// was already used, including when the first validation happened.
type TicketValidatedError struct {
	ValidatedAt time.Time
}

func (e *TicketValidatedError) Error() string {
	return "ticket already validated at " + e.ValidatedAt.Format(time.RFC3339)
}
