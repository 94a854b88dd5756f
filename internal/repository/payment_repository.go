package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// PaymentRepo persists the single payment record a booking may have.
// booking_id carries a unique constraint, so a duplicate create for
// the same booking fails at the database rather than silently
// producing a second payment.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_id, amount_cents, currency, status,
	gateway_order_id, gateway_payment_id, gateway_signature, error_message, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (model.Payment, error) {
	var (
		p          model.Payment
		id, bid    string
		paymentRef sql.NullString
		signature  sql.NullString
		errMsg     sql.NullString
		orderRef   sql.NullString
	)
	err := row.Scan(&id, &bid, &p.AmountCents, &p.Currency, &p.Status,
		&orderRef, &paymentRef, &signature, &errMsg, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Payment{}, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return model.Payment{}, err
	}
	if p.BookingID, err = uuid.Parse(bid); err != nil {
		return model.Payment{}, err
	}
	p.GatewayOrderID = orderRef.String
	p.GatewayPaymentID = paymentRef.String
	p.GatewaySignature = signature.String
	p.ErrorMessage = errMsg.String
	return p, nil
}

// ByBookingID returns the payment for a booking or
// service.ErrPaymentNotFound.
func (r *PaymentRepo) ByBookingID(ctx context.Context, bookingID uuid.UUID) (model.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE booking_id = ?`, bookingID.String())
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, service.ErrPaymentNotFound
	}
	return p, err
}

// Create inserts a new pending payment.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const query = `INSERT INTO payments
		(id, booking_id, amount_cents, currency, status, gateway_order_id)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.BookingID.String(), p.AmountCents, p.Currency, string(p.Status), p.GatewayOrderID)
	return err
}

// MarkCompleted records the gateway references and flips the status
// pending -> completed.  The status guard in the WHERE clause makes
// the update a compare-and-set: a payment that already left pending
// reports false.
func (r *PaymentRepo) MarkCompleted(ctx context.Context, id uuid.UUID, paymentRef, signature string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = 'completed', gateway_payment_id = ?, gateway_signature = ?,
			updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = 'pending'`,
		paymentRef, signature, id.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkFailed stores the gateway's error message and flips the status
// to failed.  Failed payments stay failed; retries create a new
// verification attempt against the same record only while pending.
func (r *PaymentRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = 'failed', error_message = ?, updated_at = UTC_TIMESTAMP()
		 WHERE id = ? AND status = 'pending'`,
		message, id.String())
	return err
}
