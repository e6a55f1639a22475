// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// reservation services and handlers to distinguish between different
// failure scenarios.
package repository

import "errors"

// ErrConflict is returned when a compare-and-transition update matched no
// row because the record already left the expected state.  Callers re-read
// the record to find out which transition won.
var ErrConflict = errors.New("conflict")

// ErrSeatClaimed is returned when inserting a seat claim collides with the
// (schedule_id, seat_number) primary key of an existing claim.
var ErrSeatClaimed = errors.New("seat already claimed")
