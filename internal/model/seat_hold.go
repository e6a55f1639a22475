package model

import "time"

// HoldState is the lifecycle state of a SeatHold.
type HoldState string

const (
	HoldActive   HoldState = "ACTIVE"
	HoldConsumed HoldState = "CONSUMED"
	HoldExpired  HoldState = "EXPIRED"
	HoldReleased HoldState = "RELEASED"
)

// SeatHold represents a temporary hold on a set of seats of one schedule
// while the holder completes payment.  Each seat of the hold is claimed
// individually in the lock ledger, so no seat can be part of two Active
// holds at once.  A hold leaves the Active state exactly once: released by
// its holder, consumed by finalization or expired by the sweeper.
//
// Fields:
//  ID         – opaque hold identifier returned to the client.
//  ScheduleID – schedule the seats belong to.
//  HolderID   – customer or session reference from the identity provider.
//  Seats      – held seat numbers in ascending order.
//  State      – ACTIVE, CONSUMED, EXPIRED or RELEASED.
//  CreatedAt  – when the hold was granted.
//  ExpiresAt  – end of the hold window.
//  UpdatedAt  – last state transition.
type SeatHold struct {
	ID         string    // seat_holds.id
	ScheduleID uint64    // seat_holds.schedule_id
	HolderID   string    // seat_holds.holder_id
	Seats      []int     // seat_hold_seats.seat_number
	State      HoldState // seat_holds.state
	CreatedAt  time.Time // seat_holds.created_at_ms
	ExpiresAt  time.Time // seat_holds.expires_at_ms
	UpdatedAt  time.Time // seat_holds.updated_at_ms
}

// ActiveAt reports whether the hold still blocks its seats at now.
func (h SeatHold) ActiveAt(now time.Time) bool {
	return h.State == HoldActive && h.ExpiresAt.After(now)
}

// SeatLock is an active hold on a single seat as seen by availability readers.
type SeatLock struct {
	SeatNumber int
	ExpiresAt  time.Time
}
