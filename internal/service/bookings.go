package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/monitoring"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/queue"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
)

// Bookings exposes the booking store to holders.
type Bookings struct {
	DB        *sql.DB
	Bookings  *repository.BookingRepo
	Claims    *repository.SeatClaimRepo
	Schedules ScheduleSource
	Publisher EventPublisher
	Now       Clock
}

// NewBookings wires a Bookings service over db.  A nil publisher drops
// events.
func NewBookings(db *sql.DB, schedules ScheduleSource, pub EventPublisher) *Bookings {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Bookings{
		DB:        db,
		Bookings:  repository.NewBookingRepo(db),
		Claims:    repository.NewSeatClaimRepo(db),
		Schedules: schedules,
		Publisher: pub,
	}
}

// Get returns a booking owned by holderID.
func (s *Bookings) Get(ctx context.Context, id, holderID string) (*model.Booking, error) {
	b, err := s.Bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.HolderID != holderID {
		return nil, ErrNotOwner
	}
	return b, nil
}

// ListByHolder returns the holder's bookings, newest first.
func (s *Bookings) ListByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	return s.Bookings.ListByHolder(ctx, holderID)
}

// Cancel cancels a Confirmed booking before departure and returns its
// seats to the pool.  Cancelling a cancelled booking succeeds again.
func (s *Bookings) Cancel(ctx context.Context, id, holderID string) (*model.Booking, error) {
	b, err := s.Get(ctx, id, holderID)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingCancelled {
		return b, nil
	}
	sched, err := s.Schedules.GetByID(ctx, b.ScheduleID)
	if err != nil {
		return nil, err
	}
	now := s.Now.now()
	if !sched.DepartureAt.After(now) {
		return nil, ErrScheduleDeparted
	}

	changed := true
	err = inTx(ctx, s.DB, func(tx *sql.Tx) error {
		err := s.Bookings.UpdateStatusTx(ctx, tx, id, model.BookingConfirmed, model.BookingCancelled, now)
		if errors.Is(err, repository.ErrConflict) {
			// cancelled concurrently
			changed = false
			return nil
		}
		if err != nil {
			return err
		}
		_, err = s.Claims.DeleteBookedTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingCancelled
	if !changed {
		return b, nil
	}
	b.UpdatedAt = now
	monitoring.Cancelled()

	ev := queue.BookingCancelledEvent{
		BookingID:   b.ID,
		ScheduleID:  b.ScheduleID,
		HolderID:    b.HolderID,
		SeatNumbers: b.Seats,
		CancelledAt: now.Format(time.RFC3339),
	}
	if err := s.Publisher.BookingCancelled(ctx, ev); err != nil {
		log.Printf("bookings: publish cancellation %s: %v", b.ID, err)
	}
	return b, nil
}
