package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/monitoring"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/queue"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
)

// FinalizeRequest names the holds to turn into one booking.
type FinalizeRequest struct {
	ScheduleID uint64
	HoldIDs    []string
	HolderID   string
	PaymentRef string
}

// Finalizer converts Active holds into Confirmed bookings.
type Finalizer struct {
	DB        *sql.DB
	Holds     *repository.SeatHoldRepo
	Claims    *repository.SeatClaimRepo
	Bookings  *repository.BookingRepo
	Publisher EventPublisher
	Now       Clock
	NewID     func() string
}

// NewFinalizer wires a Finalizer over db.  A nil publisher drops events.
func NewFinalizer(db *sql.DB, pub EventPublisher) *Finalizer {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Finalizer{
		DB:        db,
		Holds:     repository.NewSeatHoldRepo(db),
		Claims:    repository.NewSeatClaimRepo(db),
		Bookings:  repository.NewBookingRepo(db),
		Publisher: pub,
	}
}

// Finalize consumes every named hold and records one Confirmed booking in
// a single transaction.  The HOLD claims are converted to BOOKED claims in
// place, so no reader sees the seats free nor both held and booked.  Any
// rejected hold aborts the whole call with nothing changed.
func (f *Finalizer) Finalize(ctx context.Context, req FinalizeRequest) (*model.Booking, error) {
	b, err := f.finalize(ctx, req)
	switch {
	case err == nil:
		monitoring.Finalize(monitoring.OutcomeOK)
	case IsRejection(err):
		monitoring.Finalize(monitoring.OutcomeRejected)
	default:
		monitoring.Finalize(monitoring.OutcomeError)
	}
	return b, err
}

func (f *Finalizer) finalize(ctx context.Context, req FinalizeRequest) (*model.Booking, error) {
	if req.HolderID == "" {
		return nil, ErrInvalidHolder
	}
	ids := uniqueIDs(req.HoldIDs)
	if len(ids) == 0 {
		return nil, ErrEmptyHoldSet
	}
	now := f.Now.now()
	booking := &model.Booking{
		ID:         f.newID(),
		ScheduleID: req.ScheduleID,
		HolderID:   req.HolderID,
		Status:     model.BookingConfirmed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := inTx(ctx, f.DB, func(tx *sql.Tx) error {
		var seats []int
		for _, id := range ids {
			ok, err := f.Holds.ConsumeTx(ctx, tx, id, req.ScheduleID, req.HolderID, now)
			if err != nil {
				return err
			}
			if !ok {
				return f.diagnose(ctx, tx, id, req, now)
			}
			h, err := f.Holds.GetTx(ctx, tx, id)
			if err != nil {
				return err
			}
			n, err := f.Claims.ConvertHoldTx(ctx, tx, id, booking.ID, now)
			if err != nil {
				return err
			}
			if n != int64(len(h.Seats)) {
				return fmt.Errorf("hold %s: converted %d of %d seat claims", id, n, len(h.Seats))
			}
			seats = append(seats, h.Seats...)
		}
		booking.Seats = repository.SortedSeats(seats)
		return f.Bookings.CreateTx(ctx, tx, booking)
	})
	if err != nil {
		return nil, err
	}

	ev := queue.BookingConfirmedEvent{
		BookingID:   booking.ID,
		ScheduleID:  booking.ScheduleID,
		HolderID:    booking.HolderID,
		HoldIDs:     ids,
		SeatNumbers: booking.Seats,
		PaymentRef:  req.PaymentRef,
		ConfirmedAt: now.Format(time.RFC3339),
	}
	if err := f.Publisher.BookingConfirmed(ctx, ev); err != nil {
		log.Printf("finalizer: publish booking %s: %v", booking.ID, err)
	}
	return booking, nil
}

// diagnose explains why a hold could not be consumed.
func (f *Finalizer) diagnose(ctx context.Context, tx *sql.Tx, id string, req FinalizeRequest, now time.Time) error {
	h, err := f.Holds.GetTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			return fmt.Errorf("hold %s: %w", id, ErrHoldNotFound)
		}
		return err
	}
	switch {
	case h.HolderID != req.HolderID:
		return fmt.Errorf("hold %s: %w", id, ErrNotOwner)
	case h.ScheduleID != req.ScheduleID:
		return fmt.Errorf("hold %s: %w", id, ErrPartialHoldSet)
	case h.State == model.HoldConsumed:
		return fmt.Errorf("hold %s: %w", id, ErrAlreadyConsumed)
	case h.State == model.HoldReleased:
		return fmt.Errorf("hold %s: %w", id, ErrHoldReleased)
	case h.State == model.HoldExpired, !h.ActiveAt(now):
		return fmt.Errorf("hold %s: %w", id, ErrHoldExpired)
	}
	return fmt.Errorf("hold %s: %w", id, repository.ErrConflict)
}

// FinalizePayment handles a payment.completed signal.  Business rejections
// are logged and swallowed so the message is acked; only store failures
// are returned for a retry.
func (f *Finalizer) FinalizePayment(ctx context.Context, ev queue.PaymentCompletedEvent) error {
	b, err := f.Finalize(ctx, FinalizeRequest{
		ScheduleID: ev.ScheduleID,
		HoldIDs:    ev.HoldIDs,
		HolderID:   ev.HolderID,
		PaymentRef: ev.PaymentRef,
	})
	switch {
	case err == nil:
		log.Printf("payment-consumer: payment %s confirmed booking %s seats=%v", ev.PaymentRef, b.ID, b.Seats)
		return nil
	case IsRejection(err):
		log.Printf("payment-consumer: payment %s rejected: %v", ev.PaymentRef, err)
		return nil
	default:
		return err
	}
}

func (f *Finalizer) newID() string {
	if f.NewID != nil {
		return f.NewID()
	}
	return uuid.NewString()
}

// uniqueIDs drops empty and duplicate ids and sorts the rest so every
// finalizer touches holds in the same order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
