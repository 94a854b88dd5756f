package model

import "time"

// Seat is a single physical seat on a trip, identified by its label
// (e.g. "1A") within that trip.  A seat is either permanently booked
// or may carry a transient hold placed during checkout; the two
// states serve mutually exclusive purposes and never overlap.
//
// Fields:
//  ID            – primary key identifier.
//  TripID        – trip this seat belongs to.
//  Label         – human readable seat label, unique per trip.
//  Row           – 1-based row number.
//  Col           – 0-based column index.
//  Booked        – true once a confirmed booking owns the seat.
//  HoldUserID    – user holding the seat during checkout (nullable).
//  HoldExpiresAt – when the hold lapses (nullable).
type Seat struct {
	ID            uint64     // seats.id
	TripID        uint64     // seats.trip_id
	Label         string     // seats.seat_label
	Row           uint32     // seats.seat_row
	Col           uint32     // seats.seat_col
	Booked        bool       // seats.is_booked
	HoldUserID    *uint64    // seats.hold_user_id (nullable)
	HoldExpiresAt *time.Time // seats.hold_expires_at (nullable)
}

// AvailableAt reports whether the seat can be offered to a new
// reservation at the given instant.  Expired holds count as absent;
// no eager cleanup is required to make a lapsed seat selectable
// again.  This is a pure read: losing the seat between this check
// and acquisition is resolved by the atomic acquire, not here.
func (s Seat) AvailableAt(now time.Time) bool {
	if s.Booked {
		return false
	}
	if s.HoldExpiresAt == nil {
		return true
	}
	return !s.HoldExpiresAt.After(now)
}

// HeldBy reports whether the seat carries a live hold owned by the
// given user at the given instant.
func (s Seat) HeldBy(userID uint64, now time.Time) bool {
	if s.HoldUserID == nil || s.HoldExpiresAt == nil {
		return false
	}
	return *s.HoldUserID == userID && s.HoldExpiresAt.After(now)
}
