package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

// ErrHoldNotFound indicates that no seat_holds row has the requested id.
var ErrHoldNotFound = errors.New("hold not found")

// SeatHoldRepo provides data access to the seat_holds and seat_hold_seats
// tables.  These tables are the history of every hold ever granted; the
// live per-seat locks are kept in seat_claims by SeatClaimRepo.  Every
// state change is a compare-and-transition UPDATE guarded on the current
// state so that racing actors (holder, finalizer, sweeper) cannot both win.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// CreateTx inserts a new ACTIVE hold and its seat list within the provided
// transaction.  The caller is responsible for committing or rolling back
// the transaction.
func (r *SeatHoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.SeatHold) error {
	const q = `INSERT INTO seat_holds (id, schedule_id, holder_id, state, created_at_ms, expires_at_ms, updated_at_ms)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		h.ID, h.ScheduleID, h.HolderID, string(h.State),
		toMillis(h.CreatedAt), toMillis(h.ExpiresAt), toMillis(h.UpdatedAt),
	); err != nil {
		return err
	}
	if len(h.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_hold_seats (hold_id, seat_number) VALUES `
	args := make([]any, 0, len(h.Seats)*2)
	for i, n := range h.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, h.ID, n)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Get loads a hold with its seats.  It returns ErrHoldNotFound when the id
// is unknown.
func (r *SeatHoldRepo) Get(ctx context.Context, id string) (*model.SeatHold, error) {
	return r.get(ctx, r.db, id)
}

// GetTx is like Get but reads through the caller's transaction.
func (r *SeatHoldRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (*model.SeatHold, error) {
	return r.get(ctx, tx, id)
}

func (r *SeatHoldRepo) get(ctx context.Context, q DBTX, id string) (*model.SeatHold, error) {
	const sel = `SELECT id, schedule_id, holder_id, state, created_at_ms, expires_at_ms, updated_at_ms
                 FROM seat_holds WHERE id = ?`
	var (
		h                           model.SeatHold
		state                       string
		createdMs, expiresMs, updMs int64
	)
	err := q.QueryRowContext(ctx, sel, id).Scan(&h.ID, &h.ScheduleID, &h.HolderID, &state, &createdMs, &expiresMs, &updMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	h.State = model.HoldState(state)
	h.CreatedAt = fromMillis(createdMs)
	h.ExpiresAt = fromMillis(expiresMs)
	h.UpdatedAt = fromMillis(updMs)

	rows, err := q.QueryContext(ctx, `SELECT seat_number FROM seat_hold_seats WHERE hold_id = ? ORDER BY seat_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	h.Seats = []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		h.Seats = append(h.Seats, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &h, nil
}

// ReleaseTx moves an unexpired ACTIVE hold owned by holderID to RELEASED.
// It reports false when no row matched; the caller should re-read the hold
// to learn why.
func (r *SeatHoldRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id, holderID string, now time.Time) (bool, error) {
	const q = `UPDATE seat_holds SET state = ?, updated_at_ms = ?
               WHERE id = ? AND holder_id = ? AND state = ? AND expires_at_ms > ?`
	return affectedOne(tx.ExecContext(ctx, q,
		string(model.HoldReleased), toMillis(now),
		id, holderID, string(model.HoldActive), toMillis(now)))
}

// ConsumeTx moves an unexpired ACTIVE hold of scheduleID owned by holderID
// to CONSUMED.  It reports false when any of those preconditions fails.
func (r *SeatHoldRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, id string, scheduleID uint64, holderID string, now time.Time) (bool, error) {
	const q = `UPDATE seat_holds SET state = ?, updated_at_ms = ?
               WHERE id = ? AND schedule_id = ? AND holder_id = ? AND state = ? AND expires_at_ms > ?`
	return affectedOne(tx.ExecContext(ctx, q,
		string(model.HoldConsumed), toMillis(now),
		id, scheduleID, holderID, string(model.HoldActive), toMillis(now)))
}

// ExpireTx moves an ACTIVE hold whose window has elapsed to EXPIRED.  A
// hold that was concurrently released or consumed is left untouched and
// false is returned.
func (r *SeatHoldRepo) ExpireTx(ctx context.Context, tx *sql.Tx, id string, now time.Time) (bool, error) {
	const q = `UPDATE seat_holds SET state = ?, updated_at_ms = ?
               WHERE id = ? AND state = ? AND expires_at_ms <= ?`
	return affectedOne(tx.ExecContext(ctx, q,
		string(model.HoldExpired), toMillis(now),
		id, string(model.HoldActive), toMillis(now)))
}

// DueForExpiryTx lists up to limit ACTIVE hold ids whose window ended at or
// before now, oldest first.
func (r *SeatHoldRepo) DueForExpiryTx(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]string, error) {
	const q = `SELECT id FROM seat_holds
               WHERE state = ? AND expires_at_ms <= ?
               ORDER BY expires_at_ms ASC, id ASC
               LIMIT ?`
	rows, err := tx.QueryContext(ctx, q, string(model.HoldActive), toMillis(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListActiveByHolder returns the holder's unexpired ACTIVE holds on a
// schedule, newest first.
func (r *SeatHoldRepo) ListActiveByHolder(ctx context.Context, scheduleID uint64, holderID string, now time.Time) ([]model.SeatHold, error) {
	const q = `SELECT id FROM seat_holds
               WHERE schedule_id = ? AND holder_id = ? AND state = ? AND expires_at_ms > ?
               ORDER BY created_at_ms DESC`
	rows, err := r.db.QueryContext(ctx, q, scheduleID, holderID, string(model.HoldActive), toMillis(now))
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	out := make([]model.SeatHold, 0, len(ids))
	for _, id := range ids {
		h, err := r.get(ctx, r.db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, nil
}

// SortedSeats returns a copy of seats with duplicates and non-positive
// numbers removed, in ascending order.  Claims are always taken in this
// order so concurrent multi-seat requests lock rows consistently.
func SortedSeats(seats []int) []int {
	seen := make(map[int]struct{}, len(seats))
	out := make([]int, 0, len(seats))
	for _, n := range seats {
		if n <= 0 {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
