package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
	"github.com/iliyamo/bus-seat-booking/internal/store/memory"
)

// fakeClock is a hand-advanced Clock so expiry tests never sleep.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memTrips struct {
	mu    sync.Mutex
	trips map[uint64]model.Trip
}

func newMemTrips() *memTrips { return &memTrips{trips: make(map[uint64]model.Trip)} }

func (m *memTrips) Add(t model.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[t.ID] = t
}

func (m *memTrips) ByID(_ context.Context, id uint64) (model.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return model.Trip{}, service.ErrTripNotFound
	}
	return t, nil
}

// memBookings implements service.BookingStore on maps.  Seat labels
// are resolved through the seat store so they match what Reserve
// acquired.
type memBookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*model.Booking
	seatIDs  map[uuid.UUID][]uint64
	trips    *memTrips
	seats    *memory.SeatStore

	failCreate bool
}

func newMemBookings(trips *memTrips, seats *memory.SeatStore) *memBookings {
	return &memBookings{
		bookings: make(map[uuid.UUID]*model.Booking),
		seatIDs:  make(map[uuid.UUID][]uint64),
		trips:    trips,
		seats:    seats,
	}
}

func (m *memBookings) Create(_ context.Context, b *model.Booking, seatIDs []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("insert failed")
	}
	copied := *b
	m.bookings[b.ID] = &copied
	m.seatIDs[b.ID] = append([]uint64(nil), seatIDs...)
	return nil
}

func (m *memBookings) ByID(_ context.Context, id uuid.UUID) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, service.ErrBookingNotFound
	}
	return *b, nil
}

func (m *memBookings) SeatIDs(_ context.Context, id uuid.UUID) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, ok := m.seatIDs[id]
	if !ok {
		return nil, service.ErrBookingNotFound
	}
	return append([]uint64(nil), ids...), nil
}

func (m *memBookings) SeatLabels(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	ids, ok := m.seatIDs[id]
	m.mu.Unlock()
	if !ok {
		return nil, service.ErrBookingNotFound
	}
	var seats []model.Seat
	for _, sid := range ids {
		if seat, ok := m.seats.Seat(sid); ok {
			seats = append(seats, seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Col < seats[j].Col
	})
	labels := make([]string, len(seats))
	for i, seat := range seats {
		labels[i] = seat.Label
	}
	return labels, nil
}

func (m *memBookings) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.BookingStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (m *memBookings) ExpiredPending(_ context.Context, now time.Time, limit int) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.Status == model.BookingPending && now.After(b.LockExpiresAt) {
			out = append(out, *b)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memBookings) DepartedConfirmed(ctx context.Context, now time.Time, limit int) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if b.Status != model.BookingConfirmed {
			continue
		}
		trip, err := m.trips.ByID(ctx, b.TripID)
		if err != nil {
			continue
		}
		if trip.DepartureAt.Before(now) {
			out = append(out, *b)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// pendingOwns reports seats owned by a live pending booking, for the
// memory seat store's orphan scan.
func (m *memBookings) pendingOwns(seatID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.bookings {
		if b.Status != model.BookingPending {
			continue
		}
		for _, sid := range m.seatIDs[id] {
			if sid == seatID {
				return true
			}
		}
	}
	return false
}

type memPayments struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*model.Payment // keyed by booking id
}

func newMemPayments() *memPayments { return &memPayments{payments: make(map[uuid.UUID]*model.Payment)} }

func (m *memPayments) ByBookingID(_ context.Context, bookingID uuid.UUID) (model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[bookingID]
	if !ok {
		return model.Payment{}, service.ErrPaymentNotFound
	}
	return *p, nil
}

func (m *memPayments) Create(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.payments[p.BookingID]; exists {
		return errors.New("duplicate payment")
	}
	copied := *p
	m.payments[p.BookingID] = &copied
	return nil
}

func (m *memPayments) MarkCompleted(_ context.Context, id uuid.UUID, paymentRef, signature string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			if p.Status != model.PaymentPending {
				return false, nil
			}
			p.Status = model.PaymentCompleted
			p.GatewayPaymentID = paymentRef
			p.GatewaySignature = signature
			return true, nil
		}
	}
	return false, nil
}

func (m *memPayments) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id && p.Status == model.PaymentPending {
			p.Status = model.PaymentFailed
			p.ErrorMessage = message
		}
	}
	return nil
}

type memTickets struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*model.Ticket // keyed by booking id
}

func newMemTickets() *memTickets { return &memTickets{tickets: make(map[uuid.UUID]*model.Ticket)} }

func (m *memTickets) ByBookingID(_ context.Context, bookingID uuid.UUID) (model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[bookingID]
	if !ok {
		return model.Ticket{}, service.ErrTicketNotFound
	}
	return *t, nil
}

func (m *memTickets) Create(_ context.Context, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tickets[t.BookingID]; exists {
		return errors.New("duplicate ticket")
	}
	copied := *t
	m.tickets[t.BookingID] = &copied
	return nil
}

func (m *memTickets) MarkValidated(_ context.Context, bookingID uuid.UUID, by string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[bookingID]
	if !ok || t.IsValidated {
		return false, nil
	}
	t.IsValidated = true
	validatedAt := at
	t.ValidatedAt = &validatedAt
	validatedBy := by
	t.ValidatedBy = &validatedBy
	return true, nil
}

type notification struct {
	UserID  uint64
	Kind    string
	Payload map[string]any
}

// recorder captures notifications for assertions.
type recorder struct {
	mu     sync.Mutex
	events []notification
}

func (r *recorder) Notify(_ context.Context, userID uint64, kind string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, notification{UserID: userID, Kind: kind, Payload: payload})
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// engine bundles a fully wired in-memory booking engine for tests.
type engine struct {
	clock    *fakeClock
	trips    *memTrips
	seats    *memory.SeatStore
	bookings *memBookings
	notifier *recorder
	svc      *service.BookingService
}

const (
	testTripID   = uint64(1)
	testPrice    = uint32(45000) // cents per seat
	testHoldTTL  = 10 * time.Minute
	passengerOne = uint64(101)
	passengerTwo = uint64(102)
)

// newEngine seeds one active trip with a 2x2 seat map (1A 1B 2A 2B)
// departing eight hours from the clock's start.
func newEngine() *engine {
	clock := newFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	trips := newMemTrips()
	trips.Add(model.Trip{
		ID:          testTripID,
		OperatorID:  1,
		Name:        "Capital Express",
		BusNumber:   "KA-01-F-7777",
		BusType:     model.BusTypeACSleeper,
		Source:      "Bengaluru",
		Destination: "Hyderabad",
		DepartureAt: clock.Now().Add(8 * time.Hour),
		ArrivalAt:   clock.Now().Add(16 * time.Hour),
		PriceCents:  testPrice,
		SeatRows:    2,
		SeatsPerRow: 2,
		IsActive:    true,
	})

	var bookings *memBookings
	seats := memory.NewSeatStore(func(seatID uint64) bool { return bookings.pendingOwns(seatID) })
	id := uint64(0)
	for row := uint32(1); row <= 2; row++ {
		for col := uint32(0); col < 2; col++ {
			id++
			seats.Add(model.Seat{
				ID:     id,
				TripID: testTripID,
				Label:  string(rune('0'+row)) + string(rune('A'+col)),
				Row:    row,
				Col:    col,
			})
		}
	}
	bookings = newMemBookings(trips, seats)
	notifier := &recorder{}
	svc := service.NewBookingService(trips, seats, bookings, notifier, clock, testHoldTTL)
	return &engine{clock: clock, trips: trips, seats: seats, bookings: bookings, notifier: notifier, svc: svc}
}
