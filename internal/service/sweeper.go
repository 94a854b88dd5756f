package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/bus-seat-booking/internal/model"
)

// sweepBatchSize caps how many bookings one pass processes per
// category so a large backlog cannot pin a sweep for minutes.
const sweepBatchSize = 200

// Sweeper is the background reclaimer of the reservation engine.  On
// each pass it cancels pending bookings whose seat lock lapsed,
// clears orphan holds left behind by crashes between acquire and
// booking commit, and completes confirmed bookings of departed
// trips.  Every step is idempotent: running a pass twice against the
// same state is a no-op the second time.
type Sweeper struct {
	bookings BookingStore
	seats    SeatStore
	notifier Notifier
	clock    Clock
	interval time.Duration
}

// NewSweeper builds a sweeper; a non-positive interval falls back to
// one minute.
func NewSweeper(bookings BookingStore, seats SeatStore, notifier Notifier, clock Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Sweeper{bookings: bookings, seats: seats, notifier: notifier, clock: clock, interval: interval}
}

// Run executes Sweep on a fixed ticker until the context is
// cancelled.  Errors are logged and the loop keeps going; a failed
// pass just leaves work for the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Printf("sweeper: running every %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("sweeper: pass failed: %v", err)
			}
		}
	}
}

// Sweep performs one reclamation pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.clock.Now()

	expired, err := s.bookings.ExpiredPending(ctx, now, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, booking := range expired {
		if err := s.cancelExpired(ctx, booking); err != nil {
			log.Printf("sweeper: cancel booking %s: %v", booking.ID, err)
		}
	}

	orphans, err := s.seats.OrphanHoldSeatIDs(ctx, now)
	if err != nil {
		return err
	}
	if len(orphans) > 0 {
		if err := s.seats.Release(ctx, orphans); err != nil {
			return err
		}
		log.Printf("sweeper: cleared %d orphan holds", len(orphans))
	}

	departed, err := s.bookings.DepartedConfirmed(ctx, now, sweepBatchSize)
	if err != nil {
		return err
	}
	for _, booking := range departed {
		// No seat effect: completion is bookkeeping only.
		if _, err := s.bookings.UpdateStatus(ctx, booking.ID, model.BookingConfirmed, model.BookingCompleted); err != nil {
			log.Printf("sweeper: complete booking %s: %v", booking.ID, err)
		}
	}
	return nil
}

// cancelExpired drives one expired pending booking to cancelled and
// releases its seats.  Losing the compare-and-set to a concurrent
// confirm or cancel means the booking was already handled, which is
// success from the sweeper's point of view.
func (s *Sweeper) cancelExpired(ctx context.Context, booking model.Booking) error {
	won, err := s.bookings.UpdateStatus(ctx, booking.ID, model.BookingPending, model.BookingCancelled)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	seatIDs, err := s.bookings.SeatIDs(ctx, booking.ID)
	if err != nil {
		return err
	}
	if err := s.seats.Release(ctx, seatIDs); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, booking.UserID, NotifyBookingExpired, map[string]any{
			"booking_id": booking.ID.String(),
			"trip_id":    booking.TripID,
		})
	}
	return nil
}
