package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/queue"
)

func TestFinalize_BookedReplacesLocked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	h := e.hold(t, 1, "holderA", 300*time.Second, 10)
	a := e.snapshot(t, 1)
	assert.Equal(t, 39, a.AvailableCount)
	require.Len(t, a.ActiveLocks, 1)
	assert.Equal(t, 10, a.ActiveLocks[0].SeatNumber)
	assert.True(t, a.ActiveLocks[0].ExpiresAt.Equal(start.Add(300*time.Second)))

	b, err := e.finalizer.Finalize(ctx, FinalizeRequest{ScheduleID: 1, HoldIDs: []string{h.ID}, HolderID: "holderA"})
	require.NoError(t, err)
	assert.Equal(t, []int{10}, b.Seats)
	assert.Equal(t, model.BookingConfirmed, b.Status)

	a = e.snapshot(t, 1)
	assert.Equal(t, []int{10}, a.BookedSeats)
	assert.Empty(t, a.ActiveLocks)
	assert.Equal(t, 39, a.AvailableCount)

	require.Len(t, e.pub.confirmed, 1)
	assert.Equal(t, b.ID, e.pub.confirmed[0].BookingID)
	assert.Equal(t, []string{h.ID}, e.pub.confirmed[0].HoldIDs)
}

func TestFinalize_TwiceNeverBooksTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	h := e.hold(t, 1, "alice", 0, 20)
	req := FinalizeRequest{ScheduleID: 1, HoldIDs: []string{h.ID}, HolderID: "alice"}

	_, err := e.finalizer.Finalize(ctx, req)
	require.NoError(t, err)
	_, err = e.finalizer.Finalize(ctx, req)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)

	list, err := e.bookings.ListByHolder(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFinalize_SeveralHoldsMakeOneBooking(t *testing.T) {
	e := newEnv(t)
	h1 := e.hold(t, 1, "alice", 0, 8)
	h2 := e.hold(t, 1, "alice", 0, 2, 3)

	b, err := e.finalizer.Finalize(context.Background(), FinalizeRequest{
		ScheduleID: 1, HoldIDs: []string{h1.ID, h2.ID, h1.ID}, HolderID: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 8}, b.Seats)
	assert.Equal(t, []int{2, 3, 8}, e.snapshot(t, 1).BookedSeats)
}

func TestFinalize_RejectionChangesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	mine := e.hold(t, 1, "alice", 0, 1)
	theirs := e.hold(t, 1, "bob", 0, 2)
	other := e.hold(t, 2, "alice", 0, 1)
	released := e.hold(t, 1, "alice", 0, 3)
	require.NoError(t, e.ledger.Release(ctx, released.ID, "alice"))
	short := e.hold(t, 1, "alice", time.Second, 4)

	cases := []struct {
		name string
		ids  []string
		want error
	}{
		{"foreign hold", []string{mine.ID, theirs.ID}, ErrNotOwner},
		{"other schedule", []string{mine.ID, other.ID}, ErrPartialHoldSet},
		{"released hold", []string{mine.ID, released.ID}, ErrHoldReleased},
		{"unknown hold", []string{mine.ID, "missing"}, ErrHoldNotFound},
		{"no holds", nil, ErrEmptyHoldSet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.finalizer.Finalize(ctx, FinalizeRequest{ScheduleID: 1, HoldIDs: tc.ids, HolderID: "alice"})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	e.clock.Advance(2 * time.Second)
	_, err := e.finalizer.Finalize(ctx, FinalizeRequest{ScheduleID: 1, HoldIDs: []string{mine.ID, short.ID}, HolderID: "alice"})
	assert.ErrorIs(t, err, ErrHoldExpired)

	h, err := e.ledger.Get(ctx, mine.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, model.HoldActive, h.State)
	assert.Empty(t, e.snapshot(t, 1).BookedSeats)
	assert.Empty(t, e.pub.confirmed)
}

func TestFinalize_PublishFailureKeepsBooking(t *testing.T) {
	e := newEnv(t)
	e.pub.err = errors.New("broker down")
	h := e.hold(t, 1, "alice", 0, 9)

	b, err := e.finalizer.Finalize(context.Background(), FinalizeRequest{ScheduleID: 1, HoldIDs: []string{h.ID}, HolderID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []int{9}, e.snapshot(t, 1).BookedSeats)
	assert.NotEmpty(t, b.ID)
}

func TestFinalizePayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	h := e.hold(t, 1, "alice", 0, 6)

	ev := queue.PaymentCompletedEvent{ScheduleID: 1, HoldIDs: []string{h.ID}, HolderID: "alice", PaymentRef: "pay-1"}
	require.NoError(t, e.finalizer.FinalizePayment(ctx, ev))
	require.Len(t, e.pub.confirmed, 1)
	assert.Equal(t, "pay-1", e.pub.confirmed[0].PaymentRef)

	require.NoError(t, e.finalizer.FinalizePayment(ctx, ev), "a replayed payment is acked")
	assert.Len(t, e.pub.confirmed, 1)
}
