package service

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/queue"
)

// deadBrokerURL points at a local port nothing listens on.
func deadBrokerURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "amqp://guest:guest@" + addr + "/"
}

func TestAMQPPublisher_UnreachableBroker(t *testing.T) {
	p := NewAMQPPublisher(deadBrokerURL(t))
	ctx := context.Background()

	err := p.BookingConfirmed(ctx, queue.BookingConfirmedEvent{BookingID: "b-1", ScheduleID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")

	// no connection is cached after a failed dial, so the next publish dials again
	err = p.BookingCancelled(ctx, queue.BookingCancelledEvent{BookingID: "b-1", ScheduleID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
	assert.NoError(t, p.Close())
}

func TestFinalize_UnreachableBrokerKeepsBooking(t *testing.T) {
	e := newEnv(t)
	pub := NewAMQPPublisher(deadBrokerURL(t))
	t.Cleanup(func() { _ = pub.Close() })
	e.finalizer.Publisher = pub
	h := e.hold(t, 1, "alice", 0, 14, 15)

	b, err := e.finalizer.Finalize(context.Background(), FinalizeRequest{ScheduleID: 1, HoldIDs: []string{h.ID}, HolderID: "alice"})
	require.NoError(t, err)

	stored, err := e.bookings.Get(context.Background(), b.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int{14, 15}, stored.Seats)
	assert.Equal(t, []int{14, 15}, e.snapshot(t, 1).BookedSeats)
}
