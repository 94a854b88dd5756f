package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

func newTicketEngine(e *engine) (*service.TicketService, *memTickets) {
	tickets := newMemTickets()
	svc := service.NewTicketService(tickets, e.bookings, e.trips, e.notifier, e.clock)
	return svc, tickets
}

func confirmedBooking(t *testing.T, e *engine, labels []string) model.Booking {
	t.Helper()
	booking, err := e.svc.Reserve(context.Background(), passengerOne, testTripID, labels, passenger)
	require.NoError(t, err)
	confirmed, err := e.svc.Confirm(context.Background(), booking.ID)
	require.NoError(t, err)
	return confirmed
}

func TestIssue_SnapshotsBookingAndTrip(t *testing.T) {
	e := newEngine()
	svc, _ := newTicketEngine(e)
	booking := confirmedBooking(t, e, []string{"1A", "1B"})

	ticket, err := svc.Issue(context.Background(), passengerOne, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, ticket.BookingID)
	assert.False(t, ticket.IsValidated)

	var payload service.TicketPayload
	require.NoError(t, json.Unmarshal([]byte(ticket.Payload), &payload))
	assert.Equal(t, "gobus_v1", payload.TicketType)
	assert.Equal(t, booking.ID.String(), payload.BookingID)
	assert.Equal(t, "Capital Express", payload.TripName)
	assert.Equal(t, []string{"1A", "1B"}, payload.Seats)
	assert.Equal(t, passenger.Name, payload.PassengerName)
	assert.Equal(t, booking.TotalAmountCents, payload.TotalAmountCents)
}

func TestIssue_Idempotent(t *testing.T) {
	e := newEngine()
	svc, _ := newTicketEngine(e)
	booking := confirmedBooking(t, e, []string{"1A"})
	ctx := context.Background()

	first, err := svc.Issue(ctx, passengerOne, booking.ID)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, passengerOne, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Payload, second.Payload)
}

func TestIssue_Guards(t *testing.T) {
	e := newEngine()
	svc, _ := newTicketEngine(e)
	ctx := context.Background()

	pending, err := e.svc.Reserve(ctx, passengerOne, testTripID, []string{"2A"}, passenger)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, passengerOne, pending.ID)
	assert.ErrorIs(t, err, service.ErrTicketNotIssuable)

	booking := confirmedBooking(t, e, []string{"1A"})
	_, err = svc.Issue(ctx, passengerTwo, booking.ID)
	assert.ErrorIs(t, err, service.ErrBookingNotFound)
}

func TestValidate_SingleUse(t *testing.T) {
	e := newEngine()
	svc, _ := newTicketEngine(e)
	booking := confirmedBooking(t, e, []string{"1A", "2B"})
	ctx := context.Background()

	ticket, err := svc.Issue(ctx, passengerOne, booking.ID)
	require.NoError(t, err)

	receipt, err := svc.Validate(ctx, ticket.Payload, "operator:7")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, receipt.TicketID)
	assert.Equal(t, booking.ID, receipt.BookingID)
	assert.Equal(t, []string{"1A", "2B"}, receipt.Seats)
	assert.Equal(t, "operator:7", receipt.ValidatedBy)
	firstAt := receipt.ValidatedAt

	// A later scan, even much later, reports the original validation.
	e.clock.Advance(time.Minute)
	_, err = svc.Validate(ctx, ticket.Payload, "operator:8")
	var already *service.TicketValidatedError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, firstAt, already.ValidatedAt)
}

func TestValidate_RejectsForeignPayloads(t *testing.T) {
	e := newEngine()
	svc, _ := newTicketEngine(e)
	ctx := context.Background()

	_, err := svc.Validate(ctx, "not json", "operator:7")
	assert.ErrorIs(t, err, service.ErrInvalidTicketCode)

	wrongType, _ := json.Marshal(map[string]any{"ticket_type": "other_v2", "booking_id": "x"})
	_, err = svc.Validate(ctx, string(wrongType), "operator:7")
	assert.ErrorIs(t, err, service.ErrInvalidTicketCode)

	// Well-formed payload for a booking that has no ticket.
	ghost, _ := json.Marshal(service.TicketPayload{
		TicketType: "gobus_v1",
		BookingID:  "4dbd376e-9d3f-4a52-9f5c-1f0b6b1c0a11",
	})
	_, err = svc.Validate(ctx, string(ghost), "operator:7")
	assert.ErrorIs(t, err, service.ErrTicketNotFound)
}
