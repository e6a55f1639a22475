package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

// ErrBookingNotFound indicates that no booking has the requested id.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepo provides persistence for bookings and their seats.  Bookings
// group together one or more seats of one schedule for one holder.  The
// seat list is kept in booking_seats with its original order so a booking
// keeps its seat list after cancellation has released the claims.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a booking and its seats within the scope of an existing
// transaction.  The caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, schedule_id, holder_id, status, created_at_ms, updated_at_ms)
               VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		b.ID, b.ScheduleID, b.HolderID, b.Status, toMillis(b.CreatedAt), toMillis(b.UpdatedAt),
	); err != nil {
		return err
	}
	if len(b.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, seat_number, position) VALUES `
	args := make([]any, 0, len(b.Seats)*3)
	for i, n := range b.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, b.ID, n, i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Get returns a booking with its seats or ErrBookingNotFound.
func (r *BookingRepo) Get(ctx context.Context, id string) (*model.Booking, error) {
	return r.get(ctx, r.db, id)
}

// GetTx is like Get but reads through the caller's transaction.
func (r *BookingRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (*model.Booking, error) {
	return r.get(ctx, tx, id)
}

func (r *BookingRepo) get(ctx context.Context, q DBTX, id string) (*model.Booking, error) {
	const sel = `SELECT id, schedule_id, holder_id, status, created_at_ms, updated_at_ms FROM bookings WHERE id = ?`
	var (
		b                model.Booking
		createdMs, updMs int64
	)
	if err := q.QueryRowContext(ctx, sel, id).Scan(&b.ID, &b.ScheduleID, &b.HolderID, &b.Status, &createdMs, &updMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	b.CreatedAt = fromMillis(createdMs)
	b.UpdatedAt = fromMillis(updMs)
	seats, err := r.seatsFor(ctx, q, []string{b.ID})
	if err != nil {
		return nil, err
	}
	b.Seats = seats[b.ID]
	if b.Seats == nil {
		b.Seats = []int{}
	}
	return &b, nil
}

// ListByHolder returns every booking made by holderID, newest first.  When
// no bookings exist it returns an empty slice and nil error.
func (r *BookingRepo) ListByHolder(ctx context.Context, holderID string) ([]model.Booking, error) {
	const q = `SELECT id, schedule_id, holder_id, status, created_at_ms, updated_at_ms
               FROM bookings WHERE holder_id = ?
               ORDER BY created_at_ms DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, holderID)
	if err != nil {
		return nil, err
	}
	out := []model.Booking{}
	for rows.Next() {
		var (
			b                model.Booking
			createdMs, updMs int64
		)
		if err := rows.Scan(&b.ID, &b.ScheduleID, &b.HolderID, &b.Status, &createdMs, &updMs); err != nil {
			rows.Close()
			return nil, err
		}
		b.CreatedAt = fromMillis(createdMs)
		b.UpdatedAt = fromMillis(updMs)
		out = append(out, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(out))
	for _, b := range out {
		ids = append(ids, b.ID)
	}
	seats, err := r.seatsFor(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Seats = seats[out[i].ID]
		if out[i].Seats == nil {
			out[i].Seats = []int{}
		}
	}
	return out, nil
}

// seatsFor loads the ordered seat lists of several bookings in one query.
func (r *BookingRepo) seatsFor(ctx context.Context, q DBTX, bookingIDs []string) (map[string][]int, error) {
	args := make([]any, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		args = append(args, id)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT booking_id, seat_number FROM booking_seats
         WHERE booking_id IN (`+inClause(len(bookingIDs))+`)
         ORDER BY booking_id, position`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]int, len(bookingIDs))
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = append(out[id], n)
	}
	return out, rows.Err()
}

// UpdateStatusTx moves a booking from one status to another.  It returns
// ErrConflict when the booking is not in the from status anymore.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id, from, to string, now time.Time) error {
	ok, err := affectedOne(tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at_ms = ? WHERE id = ? AND status = ?`,
		to, toMillis(now), id, from))
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}
