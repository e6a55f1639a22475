package repository

import (
	"context"
	"strings"
	"time"
)

// ScheduleSearchQuery defines filters & pagination for searching schedules.
// From/To bound the departure time when non-zero.
type ScheduleSearchQuery struct {
	Origin      string
	Destination string
	From        time.Time
	To          time.Time
	TimeFilter  string
	Page        int
	PageSize    int
}

// ScheduleRow is a denormalized schedule listing joined with its route
// and bus.
type ScheduleRow struct {
	ID          uint64    `json:"scheduleId"`
	RouteID     uint64    `json:"routeId"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	BusID       uint64    `json:"busId"`
	PlateNumber string    `json:"plateNumber"`
	DepartureAt time.Time `json:"departureAt"`
	ArrivalAt   time.Time `json:"arrivalAt"`
	TotalSeats  int       `json:"totalSeats"`
	Status      string    `json:"status"`
}

// Search lists schedules matching q ordered by departure.  TimeFilter
// "any" disables the upcoming-only default; anything else only returns
// departures after now.
func (r *ScheduleRepo) Search(ctx context.Context, q ScheduleSearchQuery, now time.Time) ([]ScheduleRow, int64, error) {
	where := []string{}
	args := []any{}

	if strings.ToLower(q.TimeFilter) != "any" {
		where = append(where, "s.departure_at_ms > ?")
		args = append(args, toMillis(now))
	}
	if !q.From.IsZero() {
		where = append(where, "s.departure_at_ms >= ?")
		args = append(args, toMillis(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "s.departure_at_ms < ?")
		args = append(args, toMillis(q.To))
	}
	if q.Origin != "" {
		where = append(where, "LOWER(rt.origin) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Origin)+"%")
	}
	if q.Destination != "" {
		where = append(where, "LOWER(rt.destination) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Destination)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM schedules s
		JOIN routes rt ON rt.id = s.route_id
		JOIN buses b   ON b.id = s.bus_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			s.id,
			s.route_id,
			rt.origin,
			rt.destination,
			s.bus_id,
			b.plate_number,
			s.departure_at_ms,
			s.arrival_at_ms,
			s.total_seats,
			s.status
		FROM schedules s
		JOIN routes rt ON rt.id = s.route_id
		JOIN buses b   ON b.id = s.bus_id
		WHERE ` + cond + `
		ORDER BY s.departure_at_ms ASC, s.id ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]ScheduleRow, 0, limit)
	for rows.Next() {
		var (
			d            ScheduleRow
			depMs, arrMs int64
		)
		if err := rows.Scan(
			&d.ID,
			&d.RouteID,
			&d.Origin,
			&d.Destination,
			&d.BusID,
			&d.PlateNumber,
			&depMs,
			&arrMs,
			&d.TotalSeats,
			&d.Status,
		); err != nil {
			return nil, 0, err
		}
		d.DepartureAt = fromMillis(depMs)
		d.ArrivalAt = fromMillis(arrMs)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
