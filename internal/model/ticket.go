package model

import (
	"time"

	"github.com/google/uuid"
)

// Ticket is the single-use boarding document minted for a confirmed
// booking.  Payload is an immutable JSON snapshot of the trip, seats
// and passenger captured at issuance; later trip or booking edits do
// not leak into an issued ticket.  IsValidated is a one-way latch:
// it flips false -> true exactly once and a second validation of the
// same ticket must fail, never silently succeed.
//
// Fields:
//  ID          – primary key (UUID).
//  BookingID   – booking this ticket admits (unique).
//  Payload     – serialized snapshot also encoded into the QR code.
//  IsValidated – whether the ticket has been used.
//  ValidatedAt – when validation happened (nullable).
//  ValidatedBy – actor who scanned the ticket (nullable).
//  CreatedAt   – issuance timestamp.
type Ticket struct {
	ID          uuid.UUID  // tickets.id
	BookingID   uuid.UUID  // tickets.booking_id
	Payload     string     // tickets.payload
	IsValidated bool       // tickets.is_validated
	ValidatedAt *time.Time // tickets.validated_at (nullable)
	ValidatedBy *string    // tickets.validated_by (nullable)
	CreatedAt   time.Time  // tickets.created_at
}
