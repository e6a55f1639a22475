package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/database"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/queue"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
)

var start = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
	err       error
}

func (p *recordingPublisher) BookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return p.err
}

func (p *recordingPublisher) BookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return p.err
}

type env struct {
	db        *sql.DB
	clock     *fakeClock
	schedules *repository.ScheduleRepo
	pub       *recordingPublisher
	ledger    *Ledger
	finalizer *Finalizer
	projector *Projector
	bookings  *Bookings
	sweeper   *Sweeper
}

// newEnv opens an in-memory store with schedule 1 (40 seats) and schedule
// 2 (10 seats), both departing two days after start.
func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))

	schedules := repository.NewScheduleRepo(db)
	require.NoError(t, schedules.CreateRoute(ctx, &model.Route{ID: 1, Origin: "Saigon", Destination: "Da Lat"}))
	require.NoError(t, schedules.CreateBus(ctx, &model.Bus{ID: 1, PlateNumber: "51B-1", SeatRows: 10, SeatCols: 4}))
	for id, seats := range map[uint64]int{1: 40, 2: 10} {
		require.NoError(t, schedules.Create(ctx, &model.Schedule{
			ID: id, RouteID: 1, BusID: 1,
			DepartureAt: start.Add(48 * time.Hour), ArrivalAt: start.Add(55 * time.Hour),
			TotalSeats: seats,
		}))
	}

	e := &env{db: db, clock: &fakeClock{t: start}, schedules: schedules, pub: &recordingPublisher{}}
	e.ledger = NewLedger(db, schedules, 5*time.Minute, 15*time.Minute)
	e.ledger.Now = e.clock.Now
	e.finalizer = NewFinalizer(db, e.pub)
	e.finalizer.Now = e.clock.Now
	e.projector = NewProjector(db, schedules)
	e.projector.Now = e.clock.Now
	e.bookings = NewBookings(db, schedules, e.pub)
	e.bookings.Now = e.clock.Now
	e.sweeper = &Sweeper{Ledger: e.ledger, Interval: 10 * time.Millisecond, Batch: 2}
	return e
}

func (e *env) hold(t *testing.T, scheduleID uint64, holder string, ttl time.Duration, seats ...int) *model.SeatHold {
	t.Helper()
	h, err := e.ledger.Acquire(context.Background(), AcquireRequest{
		ScheduleID: scheduleID, Seats: seats, HolderID: holder, TTL: ttl,
	})
	require.NoError(t, err, fmt.Sprintf("hold %v for %s", seats, holder))
	return h
}

func (e *env) snapshot(t *testing.T, scheduleID uint64) *model.Availability {
	t.Helper()
	a, err := e.projector.Snapshot(context.Background(), scheduleID)
	require.NoError(t, err)
	return a
}

func lockedSeats(a *model.Availability) []int {
	out := []int{}
	for _, l := range a.ActiveLocks {
		out = append(out, l.SeatNumber)
	}
	return out
}
