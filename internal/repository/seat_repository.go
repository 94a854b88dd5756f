package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// SeatRepo is the production seat lock store.  TryAcquire is the
// single mutual-exclusion point for reservations: it locks the
// requested seat rows with SELECT ... FOR UPDATE inside one
// transaction, evaluates the whole set, and either holds every seat
// or none of them.  Rows are always locked in ascending seat id
// order so two overlapping requests cannot deadlock each other.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, trip_id, seat_label, seat_row, seat_col, is_booked, hold_user_id, hold_expires_at`

func scanSeat(row interface{ Scan(...any) error }) (model.Seat, error) {
	var (
		seat     model.Seat
		holdUser sql.NullInt64
		holdExp  sql.NullTime
	)
	err := row.Scan(&seat.ID, &seat.TripID, &seat.Label, &seat.Row, &seat.Col, &seat.Booked, &holdUser, &holdExp)
	if err != nil {
		return model.Seat{}, err
	}
	if holdUser.Valid {
		uid := uint64(holdUser.Int64)
		seat.HoldUserID = &uid
	}
	if holdExp.Valid {
		t := holdExp.Time.UTC()
		seat.HoldExpiresAt = &t
	}
	return seat, nil
}

// CreateBulk inserts the full seat map of a trip in one statement.
// Used when an operator creates a trip; the seat labels come from
// the trip's row/column geometry.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (trip_id, seat_label, seat_row, seat_col) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, seat.TripID, seat.Label, seat.Row, seat.Col)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ByLabels resolves seats of a trip by label.  Labels not present on
// the trip are simply absent from the result.
func (r *SeatRepo) ByLabels(ctx context.Context, tripID uint64, labels []string) ([]model.Seat, error) {
	if len(labels) == 0 {
		return []model.Seat{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(labels)), ",")
	query := `SELECT ` + seatColumns + ` FROM seats WHERE trip_id = ? AND seat_label IN (` + placeholders + `) ORDER BY seat_row, seat_col`
	args := make([]interface{}, 0, len(labels)+1)
	args = append(args, tripID)
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// ByTrip returns every seat of a trip ordered by row and column.
func (r *SeatRepo) ByTrip(ctx context.Context, tripID uint64) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE trip_id = ? ORDER BY seat_row, seat_col`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

// TryAcquire holds every listed seat for the holder or none of them.
// The row locks taken by FOR UPDATE serialize overlapping seat sets;
// disjoint sets touch disjoint rows and proceed in parallel.  A seat
// conflicts when it is booked or carries any hold that has not
// lapsed, the holder's own included: a second reservation over a
// live hold would attach the seat to two pending bookings at once.
// The returned *service.SeatsUnavailableError names every
// conflicting seat so the client can reselect in one pass.
func (r *SeatRepo) TryAcquire(ctx context.Context, seatIDs []uint64, holderID uint64, ttl time.Duration, now time.Time) (time.Time, error) {
	if len(seatIDs) == 0 {
		return time.Time{}, service.ErrInvalidSeatCount
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seatIDs)), ",")
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + placeholders + `) ORDER BY id FOR UPDATE`
	args := make([]interface{}, 0, len(seatIDs))
	for _, id := range seatIDs {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return time.Time{}, err
	}
	var (
		locked    int
		conflicts []string
	)
	for rows.Next() {
		seat, scanErr := scanSeat(rows)
		if scanErr != nil {
			rows.Close()
			return time.Time{}, scanErr
		}
		locked++
		held := seat.HoldExpiresAt != nil && seat.HoldExpiresAt.After(now)
		if seat.Booked || held {
			conflicts = append(conflicts, seat.Label)
		}
	}
	if err := rows.Close(); err != nil {
		return time.Time{}, err
	}
	if locked != len(seatIDs) {
		return time.Time{}, service.ErrSeatNotFound
	}
	if len(conflicts) > 0 {
		return time.Time{}, &service.SeatsUnavailableError{Labels: conflicts}
	}

	expiresAt := now.Add(ttl).UTC()
	update := `UPDATE seats SET hold_user_id = ?, hold_expires_at = ? WHERE id IN (` + placeholders + `)`
	updateArgs := make([]interface{}, 0, len(seatIDs)+2)
	updateArgs = append(updateArgs, holderID, expiresAt.Format(mysqlTimeLayout))
	updateArgs = append(updateArgs, args...)
	if _, err := tx.ExecContext(ctx, update, updateArgs...); err != nil {
		return time.Time{}, err
	}
	if err := tx.Commit(); err != nil {
		return time.Time{}, err
	}
	committed = true
	return expiresAt, nil
}

// Release returns the listed seats to the available pool, clearing
// both the hold fields and the booked flag (cancelling a confirmed
// booking un-books its seats).  Releasing an already free seat is a
// no-op.
func (r *SeatRepo) Release(ctx context.Context, seatIDs []uint64) error {
	return r.updateSeatState(ctx, seatIDs,
		`UPDATE seats SET is_booked = 0, hold_user_id = NULL, hold_expires_at = NULL WHERE id IN (%s)`)
}

// Finalize converts holds on the listed seats into the permanent
// booked state.
func (r *SeatRepo) Finalize(ctx context.Context, seatIDs []uint64) error {
	return r.updateSeatState(ctx, seatIDs,
		`UPDATE seats SET is_booked = 1, hold_user_id = NULL, hold_expires_at = NULL WHERE id IN (%s)`)
}

func (r *SeatRepo) updateSeatState(ctx context.Context, seatIDs []uint64, queryFmt string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seatIDs)), ",")
	args := make([]interface{}, 0, len(seatIDs))
	for _, id := range seatIDs {
		args = append(args, id)
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(queryFmt, placeholders), args...)
	return err
}

// OrphanHoldSeatIDs lists seats whose hold lapsed before now, that
// are not booked and that no pending booking owns.  Such rows can be
// left behind by a crash between hold acquisition and booking
// commit; the sweeper clears them for storage consistency even
// though availability checks already treat them as free.
func (r *SeatRepo) OrphanHoldSeatIDs(ctx context.Context, now time.Time) ([]uint64, error) {
	const query = `SELECT s.id FROM seats s
		WHERE s.hold_expires_at IS NOT NULL
		  AND s.hold_expires_at < ?
		  AND s.is_booked = 0
		  AND NOT EXISTS (
			SELECT 1 FROM booking_seats bs
			JOIN bookings b ON b.id = bs.booking_id
			WHERE bs.seat_id = s.id AND b.status = 'pending'
		  )`
	rows, err := r.db.QueryContext(ctx, query, now.UTC().Format(mysqlTimeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
