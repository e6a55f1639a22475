// Package service implements the seat reservation core: the lock ledger,
// the booking finalizer, the availability projector and the expiration
// sweeper.  All per-seat state changes go through transactions on the
// seat_claims table whose primary key is the seat lock.
package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/repository"
)

// Domain errors.  They are expected, user facing outcomes; anything else
// returned by this package is a store failure.
var (
	ErrSeatUnavailable  = errors.New("seat unavailable")
	ErrHoldExpired      = errors.New("hold expired")
	ErrAlreadyConsumed  = errors.New("hold already consumed")
	ErrHoldReleased     = errors.New("hold already released")
	ErrNotOwner         = errors.New("not owned by caller")
	ErrPartialHoldSet   = errors.New("holds do not belong to this schedule")
	ErrEmptyHoldSet     = errors.New("no holds named")
	ErrInvalidSeat      = errors.New("invalid seat number")
	ErrInvalidTTL       = errors.New("invalid hold ttl")
	ErrInvalidHolder    = errors.New("holder id is required")
	ErrScheduleClosed   = errors.New("schedule is not open for holds")
	ErrScheduleDeparted = errors.New("schedule has departed")

	ErrHoldNotFound     = repository.ErrHoldNotFound
	ErrBookingNotFound  = repository.ErrBookingNotFound
	ErrScheduleNotFound = repository.ErrScheduleNotFound
)

// SeatUnavailableError names the seats that made an acquire fail.  It
// matches ErrSeatUnavailable with errors.Is.
type SeatUnavailableError struct {
	ScheduleID uint64
	Seats      []int
}

func (e *SeatUnavailableError) Error() string {
	parts := make([]string, len(e.Seats))
	for i, n := range e.Seats {
		parts[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("schedule %d: seats [%s] unavailable", e.ScheduleID, strings.Join(parts, ","))
}

func (e *SeatUnavailableError) Is(target error) bool { return target == ErrSeatUnavailable }

// IsRejection reports whether err is a business outcome rather than a
// failure of the store.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrSeatUnavailable, ErrHoldExpired, ErrAlreadyConsumed, ErrHoldReleased,
		ErrNotOwner, ErrPartialHoldSet, ErrEmptyHoldSet, ErrInvalidSeat, ErrInvalidTTL,
		ErrInvalidHolder, ErrScheduleClosed, ErrScheduleDeparted,
		ErrHoldNotFound, ErrBookingNotFound, ErrScheduleNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
