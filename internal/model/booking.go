package model

import "time"

// Booking statuses.
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking is the permanent record produced when one or more holds are
// finalized.  Seats of Confirmed bookings on the same schedule never
// overlap; cancelling a booking returns its seats to the pool.
type Booking struct {
	ID         string    // bookings.id
	ScheduleID uint64    // bookings.schedule_id
	HolderID   string    // bookings.holder_id
	Seats      []int     // booking_seats.seat_number ordered by position
	Status     string    // bookings.status
	CreatedAt  time.Time // bookings.created_at_ms
	UpdatedAt  time.Time // bookings.updated_at_ms
}

// Availability is the merged point-in-time view of a schedule's seats.
type Availability struct {
	ScheduleID     uint64
	TotalSeats     int
	BookedSeats    []int
	ActiveLocks    []SeatLock
	AvailableCount int
	TakenAt        time.Time
}
