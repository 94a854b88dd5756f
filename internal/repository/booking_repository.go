package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// BookingRepo provides access to the bookings table and its
// append-only booking_seats junction.  Status transitions go through
// UpdateStatus, a compare-and-set on (id, expected status) that the
// service layer uses to resolve concurrent confirm/cancel/sweep
// races deterministically.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, trip_id, passenger_name, passenger_phone, passenger_email,
	seat_count, price_per_seat_cents, total_amount_cents, status, lock_expires_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b  model.Booking
		id string
	)
	err := row.Scan(&id, &b.UserID, &b.TripID, &b.PassengerName, &b.PassengerPhone, &b.PassengerEmail,
		&b.SeatCount, &b.PricePerSeatCents, &b.TotalAmountCents, &b.Status, &b.LockExpiresAt,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.ID, err = uuid.Parse(id)
	if err != nil {
		return model.Booking{}, err
	}
	b.LockExpiresAt = b.LockExpiresAt.UTC()
	return b, nil
}

// Create inserts the booking and one junction row per seat inside a
// single transaction, so a booking can never exist with a partial
// seat set.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking, seatIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO bookings
		(id, user_id, trip_id, passenger_name, passenger_phone, passenger_email,
		 seat_count, price_per_seat_cents, total_amount_cents, status, lock_expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insert,
		b.ID.String(), b.UserID, b.TripID, b.PassengerName, b.PassengerPhone, b.PassengerEmail,
		b.SeatCount, b.PricePerSeatCents, b.TotalAmountCents, string(b.Status),
		b.LockExpiresAt.UTC().Format(mysqlTimeLayout))
	if err != nil {
		return err
	}

	if len(seatIDs) > 0 {
		query := `INSERT INTO booking_seats (booking_id, seat_id) VALUES `
		args := make([]interface{}, 0, len(seatIDs)*2)
		for i, seatID := range seatIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, b.ID.String(), seatID)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ByID returns the booking or service.ErrBookingNotFound.
func (r *BookingRepo) ByID(ctx context.Context, id uuid.UUID) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id.String())
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, service.ErrBookingNotFound
	}
	return b, err
}

// SeatIDs returns the ids of the seats owned by the booking.
func (r *BookingRepo) SeatIDs(ctx context.Context, id uuid.UUID) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id FROM booking_seats WHERE booking_id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var seatID uint64
		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}
		ids = append(ids, seatID)
	}
	return ids, rows.Err()
}

// SeatLabels returns the seat labels of the booking ordered by row
// and column.
func (r *BookingRepo) SeatLabels(ctx context.Context, id uuid.UUID) ([]string, error) {
	const query = `SELECT s.seat_label FROM booking_seats bs
		JOIN seats s ON s.id = bs.seat_id
		WHERE bs.booking_id = ?
		ORDER BY s.seat_row, s.seat_col`
	rows, err := r.db.QueryContext(ctx, query, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// UpdateStatus flips the booking status from `from` to `to` only
// when it still equals `from`.  The affected-row count reports
// whether this caller won the transition; zero rows means another
// actor got there first and the caller must not apply side effects.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.BookingStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		string(to), id.String(), string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExpiredPending lists pending bookings whose lock expired before
// now, oldest first, up to limit.
func (r *BookingRepo) ExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'pending' AND lock_expires_at < ?
		ORDER BY lock_expires_at LIMIT ?`
	return r.queryBookings(ctx, query, now.UTC().Format(mysqlTimeLayout), limit)
}

// DepartedConfirmed lists confirmed bookings whose trip departed
// before now, up to limit.
func (r *BookingRepo) DepartedConfirmed(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	const q = `SELECT b.id, b.user_id, b.trip_id, b.passenger_name, b.passenger_phone, b.passenger_email,
			b.seat_count, b.price_per_seat_cents, b.total_amount_cents, b.status, b.lock_expires_at,
			b.created_at, b.updated_at
		FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		WHERE b.status = 'confirmed' AND t.departure_at < ?
		ORDER BY t.departure_at LIMIT ?`
	return r.queryBookings(ctx, q, now.UTC().Format(mysqlTimeLayout), limit)
}

// ListByUser returns the user's bookings newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	return r.queryBookings(ctx, query, userID)
}

// ListByTrip returns every booking on a trip newest first, for the
// operator dashboard.
func (r *BookingRepo) ListByTrip(ctx context.Context, tripID uint64) ([]model.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE trip_id = ? ORDER BY created_at DESC`
	return r.queryBookings(ctx, query, tripID)
}

func (r *BookingRepo) queryBookings(ctx context.Context, query string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
