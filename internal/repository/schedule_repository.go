// Package repository contains data access logic.  This file defines the
// schedule catalog: routes, buses and schedules.  The catalog is reference
// data published by the scheduling component; the reservation core only
// reads it, except for seeding demo data.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

// ErrScheduleNotFound indicates that a schedule was not located in the DB.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrBusNotFound indicates that a bus was not located in the DB.
var ErrBusNotFound = errors.New("bus not found")

// ScheduleRepo manages persistence for the schedule catalog.
type ScheduleRepo struct {
	db *sql.DB
}

// NewScheduleRepo constructs a ScheduleRepo with the given DB handle.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// CreateRoute inserts a route with a caller supplied id.
func (r *ScheduleRepo) CreateRoute(ctx context.Context, rt *model.Route) error {
	const q = `INSERT INTO routes (id, origin, destination, distance_km) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, rt.ID, rt.Origin, rt.Destination, rt.DistanceKM)
	return err
}

// CreateBus inserts a bus with a caller supplied id.
func (r *ScheduleRepo) CreateBus(ctx context.Context, b *model.Bus) error {
	const q = `INSERT INTO buses (id, plate_number, seat_rows, seat_cols) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, b.ID, b.PlateNumber, b.SeatRows, b.SeatCols)
	return err
}

// Create inserts a schedule.  When Status is empty the schedule is
// published as SCHEDULED.
func (r *ScheduleRepo) Create(ctx context.Context, s *model.Schedule) error {
	if s.Status == "" {
		s.Status = model.ScheduleScheduled
	}
	const q = `INSERT INTO schedules (id, route_id, bus_id, departure_at_ms, arrival_at_ms, total_seats, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.RouteID, s.BusID,
		toMillis(s.DepartureAt), toMillis(s.ArrivalAt), s.TotalSeats, s.Status)
	return err
}

// GetByID retrieves a schedule by its ID.  It returns ErrScheduleNotFound
// if there is no matching row.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
	const q = `SELECT id, route_id, bus_id, departure_at_ms, arrival_at_ms, total_seats, status
               FROM schedules WHERE id = ?`
	var (
		s            model.Schedule
		depMs, arrMs int64
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.RouteID, &s.BusID, &depMs, &arrMs, &s.TotalSeats, &s.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	s.DepartureAt = fromMillis(depMs)
	s.ArrivalAt = fromMillis(arrMs)
	return &s, nil
}

// GetBus retrieves a bus by id or ErrBusNotFound.
func (r *ScheduleRepo) GetBus(ctx context.Context, id uint64) (*model.Bus, error) {
	const q = `SELECT id, plate_number, seat_rows, seat_cols FROM buses WHERE id = ?`
	var b model.Bus
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.PlateNumber, &b.SeatRows, &b.SeatCols); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBusNotFound
		}
		return nil, err
	}
	return &b, nil
}
