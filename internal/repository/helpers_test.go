package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/database"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

var testNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))
	return db
}

func seedSchedule(t *testing.T, repo *ScheduleRepo, id uint64, totalSeats int, departure time.Time) {
	t.Helper()
	ctx := context.Background()
	if _, err := repo.GetBus(ctx, 1); err != nil {
		require.NoError(t, repo.CreateRoute(ctx, &model.Route{ID: 1, Origin: "Saigon", Destination: "Nha Trang", DistanceKM: 430}))
		require.NoError(t, repo.CreateBus(ctx, &model.Bus{ID: 1, PlateNumber: "51B-000.01", SeatRows: 10, SeatCols: 4}))
	}
	require.NoError(t, repo.Create(ctx, &model.Schedule{
		ID: id, RouteID: 1, BusID: 1,
		DepartureAt: departure, ArrivalAt: departure.Add(8 * time.Hour),
		TotalSeats: totalSeats,
	}))
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}
