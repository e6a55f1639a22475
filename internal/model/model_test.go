package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "Z", RowLabel(25))
	assert.Equal(t, "AA", RowLabel(26))
	assert.Equal(t, "AB", RowLabel(27))
	assert.Equal(t, "", RowLabel(-1))
}

func TestSeatLayout(t *testing.T) {
	seats := SeatLayout(10, 4)
	assert.Len(t, seats, 10)
	assert.Equal(t, Seat{Number: 1, RowLabel: "A", Column: 1}, seats[0])
	assert.Equal(t, Seat{Number: 5, RowLabel: "B", Column: 1}, seats[4])
	assert.Equal(t, Seat{Number: 10, RowLabel: "C", Column: 2}, seats[9])

	assert.Empty(t, SeatLayout(0, 4))
	single := SeatLayout(3, 0)
	assert.Equal(t, "A", single[2].RowLabel)
	assert.Equal(t, 3, single[2].Column)
}

func TestScheduleRules(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s := Schedule{TotalSeats: 40, Status: ScheduleScheduled, DepartureAt: now.Add(time.Hour)}

	assert.True(t, s.ValidSeat(1))
	assert.True(t, s.ValidSeat(40))
	assert.False(t, s.ValidSeat(0))
	assert.False(t, s.ValidSeat(41))

	assert.True(t, s.OpenForHolds(now))
	assert.False(t, s.OpenForHolds(now.Add(time.Hour)))
	s.Status = ScheduleCancelled
	assert.False(t, s.OpenForHolds(now))
}

func TestSeatHoldActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	h := SeatHold{State: HoldActive, ExpiresAt: now.Add(time.Second)}
	assert.True(t, h.ActiveAt(now))
	assert.False(t, h.ActiveAt(now.Add(time.Second)))
	h.State = HoldReleased
	assert.False(t, h.ActiveAt(now))
}
