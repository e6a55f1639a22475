package model

import "time"

// Schedule statuses.  Only SCHEDULED schedules accept new holds.
const (
	ScheduleScheduled = "SCHEDULED"
	ScheduleCancelled = "CANCELLED"
	ScheduleDeparted  = "DEPARTED"
)

// Route is a point-to-point line served by one or more schedules.
//
// Fields:
//  ID          – primary key identifier.
//  Origin      – departure city or terminal.
//  Destination – arrival city or terminal.
//  DistanceKM  – informational route length.
type Route struct {
	ID          uint64 // routes.id
	Origin      string // routes.origin
	Destination string // routes.destination
	DistanceKM  uint32 // routes.distance_km
}

// Bus is the vehicle assigned to a schedule.  SeatCols drives how seat
// numbers are laid out into rows when rendering a seat map.
type Bus struct {
	ID          uint64 // buses.id
	PlateNumber string // buses.plate_number
	SeatRows    uint32 // buses.seat_rows
	SeatCols    uint32 // buses.seat_cols
}

// Schedule is a published departure of a bus on a route.  Schedules are
// owned by the external scheduling component and are immutable from the
// point of view of the reservation core; TotalSeats bounds the valid seat
// numbers to 1..TotalSeats.
type Schedule struct {
	ID          uint64    // schedules.id
	RouteID     uint64    // schedules.route_id
	BusID       uint64    // schedules.bus_id
	DepartureAt time.Time // schedules.departure_at_ms
	ArrivalAt   time.Time // schedules.arrival_at_ms
	TotalSeats  int       // schedules.total_seats
	Status      string    // schedules.status
}

// ValidSeat reports whether n is a seat number on this schedule's vehicle.
func (s Schedule) ValidSeat(n int) bool {
	return n >= 1 && n <= s.TotalSeats
}

// OpenForHolds reports whether new seat holds may be placed at now.
func (s Schedule) OpenForHolds(now time.Time) bool {
	return s.Status == ScheduleScheduled && s.DepartureAt.After(now)
}
