// Package memory provides an in-process seat lock store implementing
// the same contract as the MySQL repository.  A single mutex
// serializes every acquire, making the whole-set check-and-set
// trivially atomic.  It backs the service tests and can run the
// server without a database for demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/bus-seat-booking/internal/model"
	"github.com/iliyamo/bus-seat-booking/internal/service"
)

// SeatStore keeps seats keyed by id, guarded by one mutex.
// Operations on disjoint seat sets still serialize here; that is
// acceptable for the in-process store, whose job is correctness, not
// throughput.
type SeatStore struct {
	mu    sync.Mutex
	seats map[uint64]*model.Seat
	// pendingOwned reports whether a seat currently belongs to a
	// pending booking; the sweeper's orphan scan consults it.
	pendingOwned func(seatID uint64) bool
}

// NewSeatStore returns an empty store.  pendingOwned may be nil, in
// which case every expired hold counts as an orphan.
func NewSeatStore(pendingOwned func(seatID uint64) bool) *SeatStore {
	return &SeatStore{seats: make(map[uint64]*model.Seat), pendingOwned: pendingOwned}
}

// Add seeds a seat.  Intended for test and demo setup.
func (s *SeatStore) Add(seat model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := seat
	s.seats[seat.ID] = &copied
}

// Seat returns a copy of the seat and whether it exists.
func (s *SeatStore) Seat(id uint64) (model.Seat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[id]
	if !ok {
		return model.Seat{}, false
	}
	return *seat, true
}

// ByLabels resolves seats of a trip by label.
func (s *SeatStore) ByLabels(_ context.Context, tripID uint64, labels []string) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[l] = struct{}{}
	}
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.TripID != tripID {
			continue
		}
		if _, ok := want[seat.Label]; ok {
			out = append(out, *seat)
		}
	}
	sortSeats(out)
	return out, nil
}

// ByTrip returns every seat of the trip ordered by row and column.
func (s *SeatStore) ByTrip(_ context.Context, tripID uint64) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.TripID == tripID {
			out = append(out, *seat)
		}
	}
	sortSeats(out)
	return out, nil
}

// TryAcquire implements the all-or-nothing hold: under the lock it
// first checks every requested seat and only then mutates any of
// them, so a conflict leaves no partial holds behind.  A live hold
// conflicts even when it belongs to the requesting holder, otherwise
// one user could attach the same seat to two pending bookings.
func (s *SeatStore) TryAcquire(_ context.Context, seatIDs []uint64, holderID uint64, ttl time.Duration, now time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflicts []string
	for _, id := range seatIDs {
		seat, ok := s.seats[id]
		if !ok {
			return time.Time{}, service.ErrSeatNotFound
		}
		held := seat.HoldExpiresAt != nil && seat.HoldExpiresAt.After(now)
		if seat.Booked || held {
			conflicts = append(conflicts, seat.Label)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return time.Time{}, &service.SeatsUnavailableError{Labels: conflicts}
	}

	expiresAt := now.Add(ttl)
	for _, id := range seatIDs {
		seat := s.seats[id]
		holder := holderID
		exp := expiresAt
		seat.HoldUserID = &holder
		seat.HoldExpiresAt = &exp
	}
	return expiresAt, nil
}

// Release clears holds and booked flags on the listed seats.
func (s *SeatStore) Release(_ context.Context, seatIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range seatIDs {
		if seat, ok := s.seats[id]; ok {
			seat.Booked = false
			seat.HoldUserID = nil
			seat.HoldExpiresAt = nil
		}
	}
	return nil
}

// Finalize converts holds into the permanent booked state.
func (s *SeatStore) Finalize(_ context.Context, seatIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range seatIDs {
		if seat, ok := s.seats[id]; ok {
			seat.Booked = true
			seat.HoldUserID = nil
			seat.HoldExpiresAt = nil
		}
	}
	return nil
}

// OrphanHoldSeatIDs lists unbooked seats with lapsed holds that no
// pending booking owns.
func (s *SeatStore) OrphanHoldSeatIDs(_ context.Context, now time.Time) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for id, seat := range s.seats {
		if seat.Booked || seat.HoldExpiresAt == nil || seat.HoldExpiresAt.After(now) {
			continue
		}
		if s.pendingOwned != nil && s.pendingOwned(id) {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Col < seats[j].Col
	})
}
