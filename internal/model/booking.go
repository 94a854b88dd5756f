package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.  Transitions
// are strictly pending -> {confirmed, cancelled} and
// confirmed -> {cancelled, completed}; cancelled and completed are
// terminal.  Every transition in the service layer is a
// compare-and-set on (id, expected status).
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking records a passenger's claim on one or more seats of a
// trip.  The set of seats is kept in the append-only booking_seats
// junction table and never mutated after creation.  TotalAmountCents
// is fixed at creation (price per seat times seat count) and never
// recomputed.
//
// Fields:
//  ID                – primary key (UUID).
//  UserID            – account that created the booking.
//  TripID            – trip being booked.
//  PassengerName     – name printed on the ticket.
//  PassengerPhone    – contact phone.
//  PassengerEmail    – contact email.
//  SeatCount         – number of seats; always equals the junction row count.
//  PricePerSeatCents – per-seat price copied from the trip at creation.
//  TotalAmountCents  – PricePerSeatCents * SeatCount, immutable.
//  Status            – current lifecycle state.
//  LockExpiresAt     – when the seat holds backing a pending booking lapse.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Booking struct {
	ID                uuid.UUID     // bookings.id
	UserID            uint64        // bookings.user_id
	TripID            uint64        // bookings.trip_id
	PassengerName     string        // bookings.passenger_name
	PassengerPhone    string        // bookings.passenger_phone
	PassengerEmail    string        // bookings.passenger_email
	SeatCount         uint32        // bookings.seat_count
	PricePerSeatCents uint32        // bookings.price_per_seat_cents
	TotalAmountCents  uint32        // bookings.total_amount_cents
	Status            BookingStatus // bookings.status
	LockExpiresAt     time.Time     // bookings.lock_expires_at
	CreatedAt         time.Time     // bookings.created_at
	UpdatedAt         time.Time     // bookings.updated_at
}

// LockExpired reports whether the checkout hold backing a pending
// booking has lapsed at the given instant.  An expired pending
// booking can no longer be confirmed, even before the sweeper has
// cancelled it.
func (b Booking) LockExpired(now time.Time) bool {
	return now.After(b.LockExpiresAt)
}

// BookingSeat is a row of the booking_seats junction table linking a
// booking to one of its seats.  Rows are written once at booking
// creation and never updated.
type BookingSeat struct {
	BookingID uuid.UUID // booking_seats.booking_id
	SeatID    uint64    // booking_seats.seat_id
}
