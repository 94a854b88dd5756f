package model

import "time"

// BusType enumerates the coach categories an operator can schedule.
// The values are stored verbatim in the trips.bus_type column.
const (
	BusTypeACSleeper    = "ac_sleeper"
	BusTypeACSeater     = "ac_seater"
	BusTypeNonACSleeper = "non_ac_sleeper"
	BusTypeNonACSeater  = "non_ac_seater"
	BusTypeVolvo        = "volvo"
)

// Trip represents one scheduled bus departure as stored in the
// `trips` table.  A trip owns a fixed seat map generated from its
// row/column geometry at creation time.  Prices are stored in cents
// to avoid floating point arithmetic on money.
//
// Fields:
//  ID          – primary key identifier.
//  OperatorID  – user who operates this trip.
//  Name        – display name of the bus service.
//  BusNumber   – registration / fleet number.
//  BusType     – one of the BusType* constants.
//  Source      – departure city.
//  Destination – arrival city.
//  DepartureAt – scheduled departure timestamp (UTC).
//  ArrivalAt   – scheduled arrival timestamp (UTC).
//  PriceCents  – price per seat in cents.
//  SeatRows    – number of seat rows.
//  SeatsPerRow – seats in each row (max 5, labelled A..E).
//  IsActive    – whether the trip is open for booking.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Trip struct {
	ID          uint64    // trips.id
	OperatorID  uint64    // trips.operator_id
	Name        string    // trips.name
	BusNumber   string    // trips.bus_number
	BusType     string    // trips.bus_type
	Source      string    // trips.source
	Destination string    // trips.destination
	DepartureAt time.Time // trips.departure_at
	ArrivalAt   time.Time // trips.arrival_at
	PriceCents  uint32    // trips.price_cents
	SeatRows    uint32    // trips.seat_rows
	SeatsPerRow uint32    // trips.seats_per_row
	IsActive    bool      // trips.is_active
	CreatedAt   time.Time // trips.created_at
	UpdatedAt   time.Time // trips.updated_at
}

// Departed reports whether the trip's departure time has passed at
// the given instant.  Cancellation is forbidden after departure and
// confirmed bookings become completable.
func (t Trip) Departed(now time.Time) bool {
	return !now.Before(t.DepartureAt)
}
