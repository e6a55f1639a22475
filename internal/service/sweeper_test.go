package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

func TestSweepOnce_ReclaimsExpiredHolds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	h := e.hold(t, 1, "alice", time.Second, 10)
	live := e.hold(t, 1, "bob", 0, 11)
	assert.Equal(t, []int{10, 11}, lockedSeats(e.snapshot(t, 1)))

	e.clock.Advance(2 * time.Second)
	assert.Equal(t, []int{11}, lockedSeats(e.snapshot(t, 1)), "elapsed locks stop counting before the sweep")

	n, err := e.sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.ledger.Holds.Get(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldExpired, got.State)
	got, err = e.ledger.Holds.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldActive, got.State)

	e.hold(t, 1, "carol", 0, 10)

	n, err = e.sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepOnce_DrainsInBatches(t *testing.T) {
	e := newEnv(t)
	for seat := 1; seat <= 5; seat++ {
		e.hold(t, 1, "alice", time.Second, seat)
	}
	e.clock.Advance(time.Minute)

	n, err := e.sweeper.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 40, e.snapshot(t, 1).AvailableCount)
}

func TestSweepOnce_LosesToEarlierTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	released := e.hold(t, 1, "alice", time.Second, 1)
	consumed := e.hold(t, 1, "alice", time.Second, 2)
	require.NoError(t, e.ledger.Release(ctx, released.ID, "alice"))
	_, err := e.finalizer.Finalize(ctx, FinalizeRequest{ScheduleID: 1, HoldIDs: []string{consumed.ID}, HolderID: "alice"})
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	n, err := e.sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int{2}, e.snapshot(t, 1).BookedSeats, "the sweeper never touches bookings")
}

func TestSweeperRun(t *testing.T) {
	e := newEnv(t)
	h := e.hold(t, 1, "alice", time.Second, 10)
	e.clock.Advance(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.sweeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := e.ledger.Holds.Get(context.Background(), h.ID)
		return err == nil && got.State == model.HoldExpired
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
