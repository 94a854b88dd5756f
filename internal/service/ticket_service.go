package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-booking/internal/model"
)

// ticketPayloadType tags the QR payload format so scanners can
// reject codes from other systems outright.
const ticketPayloadType = "gobus_v1"

// TicketPayload is the snapshot serialized into a ticket at
// issuance.  It is self-contained: a scanner can show trip, seats
// and passenger without touching the catalog, and later edits to the
// trip or booking never change an issued ticket.
type TicketPayload struct {
	TicketType       string    `json:"ticket_type"`
	BookingID        string    `json:"booking_id"`
	TripID           uint64    `json:"trip_id"`
	TripName         string    `json:"trip_name"`
	BusNumber        string    `json:"bus_number"`
	Source           string    `json:"source"`
	Destination      string    `json:"destination"`
	DepartureAt      time.Time `json:"departure_at"`
	Seats            []string  `json:"seats"`
	PassengerName    string    `json:"passenger_name"`
	PassengerPhone   string    `json:"passenger_phone"`
	TotalAmountCents uint32    `json:"total_amount_cents"`
	IssuedAt         time.Time `json:"issued_at"`
}

// ValidationReceipt is returned to the scanning operator after a
// successful validation.
type ValidationReceipt struct {
	TicketID      uuid.UUID `json:"ticket_id"`
	BookingID     uuid.UUID `json:"booking_id"`
	TripName      string    `json:"trip_name"`
	Seats         []string  `json:"seats"`
	PassengerName string    `json:"passenger_name"`
	ValidatedAt   time.Time `json:"validated_at"`
	ValidatedBy   string    `json:"validated_by"`
}

// TicketService mints exactly one ticket per confirmed booking and
// enforces single use at the gate.
type TicketService struct {
	tickets  TicketStore
	store    BookingStore
	trips    TripStore
	notifier Notifier
	clock    Clock
}

// NewTicketService wires the ticket issuer.
func NewTicketService(tickets TicketStore, store BookingStore, trips TripStore, notifier Notifier, clock Clock) *TicketService {
	if clock == nil {
		clock = SystemClock()
	}
	return &TicketService{tickets: tickets, store: store, trips: trips, notifier: notifier, clock: clock}
}

// Issue mints the ticket for a confirmed booking the user owns, or
// returns the already issued one unchanged.  Completed bookings keep
// access to their ticket for the trip history screen.
func (s *TicketService) Issue(ctx context.Context, userID uint64, bookingID uuid.UUID) (model.Ticket, error) {
	booking, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return model.Ticket{}, err
	}
	if booking.UserID != userID {
		return model.Ticket{}, ErrBookingNotFound
	}
	if booking.Status != model.BookingConfirmed && booking.Status != model.BookingCompleted {
		return model.Ticket{}, ErrTicketNotIssuable
	}

	existing, err := s.tickets.ByBookingID(ctx, bookingID)
	switch {
	case err == nil:
		return existing, nil
	case errors.Is(err, ErrTicketNotFound):
		// mint below
	default:
		return model.Ticket{}, err
	}

	trip, err := s.trips.ByID(ctx, booking.TripID)
	if err != nil {
		return model.Ticket{}, err
	}
	labels, err := s.store.SeatLabels(ctx, bookingID)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("load seat labels: %w", err)
	}

	now := s.clock.Now()
	payload, err := json.Marshal(TicketPayload{
		TicketType:       ticketPayloadType,
		BookingID:        booking.ID.String(),
		TripID:           trip.ID,
		TripName:         trip.Name,
		BusNumber:        trip.BusNumber,
		Source:           trip.Source,
		Destination:      trip.Destination,
		DepartureAt:      trip.DepartureAt,
		Seats:            labels,
		PassengerName:    booking.PassengerName,
		PassengerPhone:   booking.PassengerPhone,
		TotalAmountCents: booking.TotalAmountCents,
		IssuedAt:         now,
	})
	if err != nil {
		return model.Ticket{}, fmt.Errorf("marshal ticket payload: %w", err)
	}

	ticket := model.Ticket{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Payload:   string(payload),
		CreatedAt: now,
	}
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		// A concurrent Issue may have minted the ticket first; the
		// unique booking_id constraint makes that visible here.
		if existing, getErr := s.tickets.ByBookingID(ctx, bookingID); getErr == nil {
			return existing, nil
		}
		return model.Ticket{}, fmt.Errorf("create ticket: %w", err)
	}
	return ticket, nil
}

// Validate parses a scanned payload, locates the ticket by the
// embedded booking id and latches it validated.  The check-and-set
// is atomic in the store, so two turnstiles scanning the same QR at
// once resolve to exactly one success; the loser receives
// *TicketValidatedError.
func (s *TicketService) Validate(ctx context.Context, rawPayload, validatedBy string) (ValidationReceipt, error) {
	var payload TicketPayload
	if err := json.Unmarshal([]byte(rawPayload), &payload); err != nil {
		return ValidationReceipt{}, ErrInvalidTicketCode
	}
	if payload.TicketType != ticketPayloadType || payload.BookingID == "" {
		return ValidationReceipt{}, ErrInvalidTicketCode
	}
	bookingID, err := uuid.Parse(payload.BookingID)
	if err != nil {
		return ValidationReceipt{}, ErrInvalidTicketCode
	}

	ticket, err := s.tickets.ByBookingID(ctx, bookingID)
	if err != nil {
		return ValidationReceipt{}, err
	}
	if ticket.IsValidated {
		at := s.clock.Now()
		if ticket.ValidatedAt != nil {
			at = *ticket.ValidatedAt
		}
		return ValidationReceipt{}, &TicketValidatedError{ValidatedAt: at}
	}

	now := s.clock.Now()
	won, err := s.tickets.MarkValidated(ctx, bookingID, validatedBy, now)
	if err != nil {
		return ValidationReceipt{}, fmt.Errorf("validate ticket: %w", err)
	}
	if !won {
		// Lost the race to a concurrent scan.
		refreshed, getErr := s.tickets.ByBookingID(ctx, bookingID)
		at := now
		if getErr == nil && refreshed.ValidatedAt != nil {
			at = *refreshed.ValidatedAt
		}
		return ValidationReceipt{}, &TicketValidatedError{ValidatedAt: at}
	}

	if s.notifier != nil {
		if booking, err := s.store.ByID(ctx, bookingID); err == nil {
			s.notifier.Notify(ctx, booking.UserID, NotifyTicketValidated, map[string]any{
				"booking_id": bookingID.String(),
				"ticket_id":  ticket.ID.String(),
			})
		}
	}
	return ValidationReceipt{
		TicketID:      ticket.ID,
		BookingID:     bookingID,
		TripName:      payload.TripName,
		Seats:         payload.Seats,
		PassengerName: payload.PassengerName,
		ValidatedAt:   now,
		ValidatedBy:   validatedBy,
	}, nil
}
