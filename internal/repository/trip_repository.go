package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// TripRepo provides access to the trips table.  Operators manage
// their own trips; passengers only ever read active ones.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo returns a TripRepo bound to the given database.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

const tripColumns = `id, operator_id, name, bus_number, bus_type, source, destination,
	departure_at, arrival_at, price_cents, seat_rows, seats_per_row, is_active, created_at, updated_at`

func scanTrip(row interface{ Scan(...any) error }) (model.Trip, error) {
	var t model.Trip
	err := row.Scan(&t.ID, &t.OperatorID, &t.Name, &t.BusNumber, &t.BusType,
		&t.Source, &t.Destination, &t.DepartureAt, &t.ArrivalAt,
		&t.PriceCents, &t.SeatRows, &t.SeatsPerRow, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Trip{}, err
	}
	t.DepartureAt = t.DepartureAt.UTC()
	t.ArrivalAt = t.ArrivalAt.UTC()
	return t, nil
}

// ByID returns a single trip or service.ErrTripNotFound.
func (r *TripRepo) ByID(ctx context.Context, id uint64) (model.Trip, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Trip{}, service.ErrTripNotFound
	}
	return t, err
}

// Create inserts a trip and backfills the generated id.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) error {
	const query = `INSERT INTO trips
		(operator_id, name, bus_number, bus_type, source, destination,
		 departure_at, arrival_at, price_cents, seat_rows, seats_per_row, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		t.OperatorID, t.Name, t.BusNumber, t.BusType, t.Source, t.Destination,
		t.DepartureAt.UTC().Format(mysqlTimeLayout), t.ArrivalAt.UTC().Format(mysqlTimeLayout),
		t.PriceCents, t.SeatRows, t.SeatsPerRow, t.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// Update rewrites the mutable fields of a trip owned by the given
// operator.  Returns ErrForbidden when the trip belongs to someone
// else and service.ErrTripNotFound when it does not exist.
func (r *TripRepo) Update(ctx context.Context, operatorID uint64, t *model.Trip) error {
	owner, err := r.ownerOf(ctx, t.ID)
	if err != nil {
		return err
	}
	if owner != operatorID {
		return ErrForbidden
	}
	const query = `UPDATE trips SET name = ?, bus_number = ?, bus_type = ?, source = ?,
		destination = ?, departure_at = ?, arrival_at = ?, price_cents = ?, is_active = ?,
		updated_at = UTC_TIMESTAMP()
		WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query,
		t.Name, t.BusNumber, t.BusType, t.Source, t.Destination,
		t.DepartureAt.UTC().Format(mysqlTimeLayout), t.ArrivalAt.UTC().Format(mysqlTimeLayout),
		t.PriceCents, t.IsActive, t.ID)
	return err
}

// Deactivate flips is_active off.  Trips with sold seats are never
// hard deleted, existing confirmed bookings stay intact.
func (r *TripRepo) Deactivate(ctx context.Context, operatorID, tripID uint64) error {
	owner, err := r.ownerOf(ctx, tripID)
	if err != nil {
		return err
	}
	if owner != operatorID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE trips SET is_active = 0, updated_at = UTC_TIMESTAMP() WHERE id = ?`, tripID)
	return err
}

// Delete removes a trip that has no bookings at all.  A trip with any
// booking rows, pending included, reports ErrConflict.
func (r *TripRepo) Delete(ctx context.Context, operatorID, tripID uint64) error {
	owner, err := r.ownerOf(ctx, tripID)
	if err != nil {
		return err
	}
	if owner != operatorID {
		return ErrForbidden
	}
	var n int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE trip_id = ?`, tripID).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	if _, err = r.db.ExecContext(ctx, `DELETE FROM seats WHERE trip_id = ?`, tripID); err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, tripID)
	return err
}

func (r *TripRepo) ownerOf(ctx context.Context, tripID uint64) (uint64, error) {
	var owner uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT operator_id FROM trips WHERE id = ?`, tripID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, service.ErrTripNotFound
	}
	return owner, err
}

// ListByOperator returns every trip an operator has created, newest
// departure first.
func (r *TripRepo) ListByOperator(ctx context.Context, operatorID uint64) ([]model.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE operator_id = ? ORDER BY departure_at DESC`
	return r.queryTrips(ctx, query, operatorID)
}

// TripFilter narrows a public trip search.  Zero values mean "any".
type TripFilter struct {
	Source      string
	Destination string
	Date        time.Time // matches trips departing on this calendar day (UTC)
	BusType     string
}

// Search returns active, not-yet-departed trips matching the filter,
// soonest departure first.
func (r *TripRepo) Search(ctx context.Context, f TripFilter, now time.Time) ([]model.Trip, error) {
	var (
		where = []string{"is_active = 1", "departure_at > ?"}
		args  = []any{now.UTC().Format(mysqlTimeLayout)}
	)
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Destination != "" {
		where = append(where, "destination = ?")
		args = append(args, f.Destination)
	}
	if !f.Date.IsZero() {
		day := f.Date.UTC().Truncate(24 * time.Hour)
		where = append(where, "departure_at >= ? AND departure_at < ?")
		args = append(args,
			day.Format(mysqlTimeLayout), day.Add(24*time.Hour).Format(mysqlTimeLayout))
	}
	if f.BusType != "" {
		where = append(where, "bus_type = ?")
		args = append(args, f.BusType)
	}
	query := fmt.Sprintf(`SELECT %s FROM trips WHERE %s ORDER BY departure_at ASC`,
		tripColumns, strings.Join(where, " AND "))
	return r.queryTrips(ctx, query, args...)
}

func (r *TripRepo) queryTrips(ctx context.Context, query string, args ...any) ([]model.Trip, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}
