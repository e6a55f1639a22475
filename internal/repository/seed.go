package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

// SeedDemo publishes a small demo catalog (one route, one 40 seat coach
// and three daily departures starting tomorrow) unless schedule 1 already
// exists.  Intended for local runs with SEED_DEMO=true.
func SeedDemo(ctx context.Context, r *ScheduleRepo, now time.Time) error {
	if _, err := r.GetByID(ctx, 1); err == nil {
		return nil
	} else if !errors.Is(err, ErrScheduleNotFound) {
		return err
	}
	if err := r.CreateRoute(ctx, &model.Route{ID: 1, Origin: "Ho Chi Minh City", Destination: "Da Lat", DistanceKM: 308}); err != nil {
		return err
	}
	if err := r.CreateBus(ctx, &model.Bus{ID: 1, PlateNumber: "51B-123.45", SeatRows: 10, SeatCols: 4}); err != nil {
		return err
	}
	base := now.UTC().Truncate(24 * time.Hour).Add(24*time.Hour + 7*time.Hour)
	for i := 0; i < 3; i++ {
		dep := base.Add(time.Duration(i) * 24 * time.Hour)
		if err := r.Create(ctx, &model.Schedule{
			ID:          uint64(i + 1),
			RouteID:     1,
			BusID:       1,
			DepartureAt: dep,
			ArrivalAt:   dep.Add(7 * time.Hour),
			TotalSeats:  40,
		}); err != nil {
			return err
		}
	}
	return nil
}
