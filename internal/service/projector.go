package service

import (
	"context"
	"database/sql"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
)

// Projector composes booked seats and live locks into an availability
// snapshot.  It owns no state.
type Projector struct {
	DB        *sql.DB
	Claims    *repository.SeatClaimRepo
	Schedules ScheduleSource
	Now       Clock
}

// NewProjector wires a Projector over db.
func NewProjector(db *sql.DB, schedules ScheduleSource) *Projector {
	return &Projector{DB: db, Claims: repository.NewSeatClaimRepo(db), Schedules: schedules}
}

// Snapshot reads booked seats and active locks in one read transaction, so
// a seat being finalized is counted exactly once.
func (p *Projector) Snapshot(ctx context.Context, scheduleID uint64) (*model.Availability, error) {
	sched, err := p.Schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	now := p.Now.now()
	out := &model.Availability{ScheduleID: scheduleID, TotalSeats: sched.TotalSeats, TakenAt: now}
	err = inTx(ctx, p.DB, func(tx *sql.Tx) error {
		booked, err := p.Claims.BookedSeats(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		locks, err := p.Claims.ActiveLocks(ctx, tx, scheduleID, now)
		if err != nil {
			return err
		}
		out.BookedSeats, out.ActiveLocks = booked, locks
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.AvailableCount = sched.TotalSeats - len(out.BookedSeats) - len(out.ActiveLocks)
	if out.AvailableCount < 0 {
		out.AvailableCount = 0
	}
	return out, nil
}
