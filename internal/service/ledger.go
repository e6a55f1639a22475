package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/monitoring"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
)

// AcquireRequest asks for an all-or-nothing hold on Seats.  A zero TTL
// selects the ledger default.
type AcquireRequest struct {
	ScheduleID uint64
	Seats      []int
	HolderID   string
	TTL        time.Duration
}

// ExpiredHold reports one hold reclaimed by ExpireDue.
type ExpiredHold struct {
	HoldID     string
	SeatsFreed int64
}

// ClaimStore is the part of the seat claim table the ledger uses.
// *repository.SeatClaimRepo implements it.
type ClaimStore interface {
	ClaimsForSeatsTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, seats []int) ([]repository.Claim, error)
	InsertHoldTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, seat int, holdID, holderID string, expiresAt time.Time) error
	DeleteHoldTx(ctx context.Context, tx *sql.Tx, holdID string) (int64, error)
	ActiveLocks(ctx context.Context, q repository.DBTX, scheduleID uint64, now time.Time) ([]model.SeatLock, error)
}

// Ledger is the authoritative record of time-bound seat holds.
type Ledger struct {
	DB         *sql.DB
	Holds      *repository.SeatHoldRepo
	Claims     ClaimStore
	Schedules  ScheduleSource
	DefaultTTL time.Duration
	MaxTTL     time.Duration
	Now        Clock
	NewID      func() string
}

// NewLedger wires a Ledger over db.
func NewLedger(db *sql.DB, schedules ScheduleSource, defaultTTL, maxTTL time.Duration) *Ledger {
	return &Ledger{
		DB:         db,
		Holds:      repository.NewSeatHoldRepo(db),
		Claims:     repository.NewSeatClaimRepo(db),
		Schedules:  schedules,
		DefaultTTL: defaultTTL,
		MaxTTL:     maxTTL,
	}
}

func (l *Ledger) ttl(requested time.Duration) (time.Duration, error) {
	if requested == 0 {
		requested = l.DefaultTTL
	}
	if requested < time.Second || (l.MaxTTL > 0 && requested > l.MaxTTL) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTTL, requested)
	}
	return requested, nil
}

func (l *Ledger) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

// Acquire places one hold covering every requested seat or none of them.
// Seats already claimed by an unexpired hold or a booking are reported in
// a *SeatUnavailableError.  Claims are inserted in ascending seat order;
// the claim primary key decides concurrent attempts on the same seat.
func (l *Ledger) Acquire(ctx context.Context, req AcquireRequest) (*model.SeatHold, error) {
	if req.HolderID == "" {
		return nil, ErrInvalidHolder
	}
	ttl, err := l.ttl(req.TTL)
	if err != nil {
		return nil, err
	}
	if len(req.Seats) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidSeat)
	}
	sched, err := l.Schedules.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	// the store keeps milliseconds; the returned hold must match it
	now := l.Now.now().Truncate(time.Millisecond)
	if !sched.OpenForHolds(now) {
		return nil, ErrScheduleClosed
	}
	for _, n := range req.Seats {
		if !sched.ValidSeat(n) {
			return nil, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidSeat, n, sched.TotalSeats)
		}
	}
	seats := repository.SortedSeats(req.Seats)

	hold := &model.SeatHold{
		ID:         l.newID(),
		ScheduleID: req.ScheduleID,
		HolderID:   req.HolderID,
		Seats:      seats,
		State:      model.HoldActive,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl).Truncate(time.Millisecond),
		UpdatedAt:  now,
	}

	err = inTx(ctx, l.DB, func(tx *sql.Tx) error {
		claims, err := l.Claims.ClaimsForSeatsTx(ctx, tx, req.ScheduleID, seats)
		if err != nil {
			return err
		}
		var (
			taken []int
			stale []string
		)
		for _, c := range claims {
			if c.Kind == repository.ClaimHold && !c.ExpiresAt.After(now) {
				stale = append(stale, c.HoldID)
				continue
			}
			taken = append(taken, c.SeatNumber)
		}
		if len(taken) > 0 {
			return &SeatUnavailableError{ScheduleID: req.ScheduleID, Seats: taken}
		}
		for _, id := range uniqueIDs(stale) {
			if _, err := l.expireTx(ctx, tx, id, now); err != nil {
				return err
			}
		}

		if err := l.Holds.CreateTx(ctx, tx, hold); err != nil {
			return err
		}
		for _, n := range seats {
			err := l.Claims.InsertHoldTx(ctx, tx, req.ScheduleID, n, hold.ID, req.HolderID, hold.ExpiresAt)
			if errors.Is(err, repository.ErrSeatClaimed) {
				taken = append(taken, n)
				continue
			}
			if err != nil {
				return err
			}
		}
		if len(taken) > 0 {
			return &SeatUnavailableError{ScheduleID: req.ScheduleID, Seats: taken}
		}
		return nil
	})
	switch {
	case err == nil:
		monitoring.Hold(monitoring.OutcomeOK, len(seats))
		return hold, nil
	case errors.Is(err, ErrSeatUnavailable):
		monitoring.Hold(monitoring.OutcomeUnavailable, 0)
		return nil, err
	default:
		monitoring.Hold(monitoring.OutcomeError, 0)
		return nil, err
	}
}

// Release cancels an Active hold on behalf of its holder.  Releasing an
// already released hold succeeds again.
func (l *Ledger) Release(ctx context.Context, holdID, holderID string) error {
	now := l.Now.now()
	var outcome error
	err := inTx(ctx, l.DB, func(tx *sql.Tx) error {
		ok, err := l.Holds.ReleaseTx(ctx, tx, holdID, holderID, now)
		if err != nil {
			return err
		}
		if ok {
			_, err := l.Claims.DeleteHoldTx(ctx, tx, holdID)
			return err
		}

		h, err := l.Holds.GetTx(ctx, tx, holdID)
		if err != nil {
			return err
		}
		if h.HolderID != holderID {
			return ErrNotOwner
		}
		switch h.State {
		case model.HoldReleased:
			return nil
		case model.HoldConsumed:
			return ErrAlreadyConsumed
		case model.HoldActive:
			// window elapsed before the sweeper got to it
			if _, err := l.expireTx(ctx, tx, holdID, now); err != nil {
				return err
			}
		}
		outcome = ErrHoldExpired
		return nil
	})
	if err == nil {
		err = outcome
	}
	switch {
	case err == nil:
		monitoring.Release(monitoring.OutcomeOK)
	case IsRejection(err):
		monitoring.Release(monitoring.OutcomeRejected)
	default:
		monitoring.Release(monitoring.OutcomeError)
	}
	return err
}

// Peek lists the Active, unexpired seat locks of a schedule.
func (l *Ledger) Peek(ctx context.Context, scheduleID uint64) ([]model.SeatLock, error) {
	return l.Claims.ActiveLocks(ctx, l.DB, scheduleID, l.Now.now())
}

// Get returns a hold to its holder.  An Active hold whose window elapsed
// is reported as EXPIRED even before the sweeper has run.
func (l *Ledger) Get(ctx context.Context, holdID, holderID string) (*model.SeatHold, error) {
	h, err := l.Holds.Get(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if h.HolderID != holderID {
		return nil, ErrNotOwner
	}
	if h.State == model.HoldActive && !h.ActiveAt(l.Now.now()) {
		h.State = model.HoldExpired
	}
	return h, nil
}

// ListMine lists the holder's Active holds on a schedule.
func (l *Ledger) ListMine(ctx context.Context, scheduleID uint64, holderID string) ([]model.SeatHold, error) {
	return l.Holds.ListActiveByHolder(ctx, scheduleID, holderID, l.Now.now())
}

// ExpireDue moves up to batch elapsed Active holds to EXPIRED and frees
// their seats in one transaction.
func (l *Ledger) ExpireDue(ctx context.Context, now time.Time, batch int) ([]ExpiredHold, error) {
	var out []ExpiredHold
	err := inTx(ctx, l.DB, func(tx *sql.Tx) error {
		ids, err := l.Holds.DueForExpiryTx(ctx, tx, now, batch)
		if err != nil {
			return err
		}
		for _, id := range ids {
			freed, err := l.expireTx(ctx, tx, id, now)
			if err != nil {
				return err
			}
			if freed >= 0 {
				out = append(out, ExpiredHold{HoldID: id, SeatsFreed: freed})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// expireTx transitions an elapsed hold to EXPIRED and deletes its HOLD
// claims.  It returns -1 when the hold had already left ACTIVE, in which
// case only leftover HOLD claims are removed.
func (l *Ledger) expireTx(ctx context.Context, tx *sql.Tx, holdID string, now time.Time) (int64, error) {
	ok, err := l.Holds.ExpireTx(ctx, tx, holdID, now)
	if err != nil {
		return 0, err
	}
	freed, err := l.Claims.DeleteHoldTx(ctx, tx, holdID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return -1, nil
	}
	return freed, nil
}
