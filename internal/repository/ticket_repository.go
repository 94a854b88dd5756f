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

// TicketRepo stores issued tickets.  One ticket per booking, enforced
// by a unique index on booking_id.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, booking_id, payload, is_validated, validated_at, validated_by, created_at`

func scanTicket(row interface{ Scan(...any) error }) (model.Ticket, error) {
	var (
		t           model.Ticket
		id, bid     string
		validatedAt sql.NullTime
		validatedBy sql.NullString
	)
	err := row.Scan(&id, &bid, &t.Payload, &t.IsValidated, &validatedAt, &validatedBy, &t.CreatedAt)
	if err != nil {
		return model.Ticket{}, err
	}
	if t.ID, err = uuid.Parse(id); err != nil {
		return model.Ticket{}, err
	}
	if t.BookingID, err = uuid.Parse(bid); err != nil {
		return model.Ticket{}, err
	}
	if validatedAt.Valid {
		at := validatedAt.Time.UTC()
		t.ValidatedAt = &at
	}
	if validatedBy.Valid {
		by := validatedBy.String
		t.ValidatedBy = &by
	}
	return t, nil
}

// ByBookingID returns the ticket issued for a booking or
// service.ErrTicketNotFound.
func (r *TicketRepo) ByBookingID(ctx context.Context, bookingID uuid.UUID) (model.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE booking_id = ?`, bookingID.String())
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, service.ErrTicketNotFound
	}
	return t, err
}

// Create inserts a freshly issued ticket.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (id, booking_id, payload) VALUES (?, ?, ?)`,
		t.ID.String(), t.BookingID.String(), t.Payload)
	return err
}

// MarkValidated flips the one-shot validation latch.  The is_validated
// guard makes concurrent scans race safely: exactly one caller sees
// true, everyone else gets false and reads back the winner's record.
func (r *TicketRepo) MarkValidated(ctx context.Context, bookingID uuid.UUID, by string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET is_validated = 1, validated_at = ?, validated_by = ?
		 WHERE booking_id = ? AND is_validated = 0`,
		at.UTC().Format(mysqlTimeLayout), by, bookingID.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
