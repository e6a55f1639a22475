package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/database"
	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

// Claim kinds stored in seat_claims.kind.
const (
	ClaimHold   = "HOLD"
	ClaimBooked = "BOOKED"
)

// Claim is one row of seat_claims: the single live owner of a seat on a
// schedule.  HOLD claims carry the hold id and an expiry; BOOKED claims
// carry the booking id.
type Claim struct {
	ScheduleID uint64
	SeatNumber int
	Kind       string
	HoldID     string
	BookingID  string
	HolderID   string
	ExpiresAt  time.Time
}

// SeatClaimRepo manages the seat_claims table, keyed by
// (schedule_id, seat_number).  The primary key is what makes seat
// acquisition linearizable: of any number of concurrent inserts for the
// same seat exactly one succeeds.  Booked seats and held seats share the
// same key, so a seat can never be both held and booked.
type SeatClaimRepo struct {
	db *sql.DB
}

// NewSeatClaimRepo returns a SeatClaimRepo bound to db.
func NewSeatClaimRepo(db *sql.DB) *SeatClaimRepo { return &SeatClaimRepo{db: db} }

// ClaimsForSeatsTx returns the existing claims on the given seats of a
// schedule, in seat order.  Seats without a claim are omitted.
func (r *SeatClaimRepo) ClaimsForSeatsTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, seats []int) ([]Claim, error) {
	if len(seats) == 0 {
		return []Claim{}, nil
	}
	q := `SELECT schedule_id, seat_number, kind, hold_id, booking_id, holder_id, expires_at_ms
          FROM seat_claims
          WHERE schedule_id = ? AND seat_number IN (` + inClause(len(seats)) + `)
          ORDER BY seat_number`
	args := make([]any, 0, len(seats)+1)
	args = append(args, scheduleID)
	for _, n := range seats {
		args = append(args, n)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Claim{}
	for rows.Next() {
		var (
			c         Claim
			holdID    sql.NullString
			bookingID sql.NullString
			expiresMs int64
		)
		if err := rows.Scan(&c.ScheduleID, &c.SeatNumber, &c.Kind, &holdID, &bookingID, &c.HolderID, &expiresMs); err != nil {
			return nil, err
		}
		c.HoldID = holdID.String
		c.BookingID = bookingID.String
		c.ExpiresAt = fromMillis(expiresMs)
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertHoldTx claims one seat for a hold.  A collision with an existing
// claim is reported as ErrSeatClaimed.
func (r *SeatClaimRepo) InsertHoldTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, seat int, holdID, holderID string, expiresAt time.Time) error {
	const q = `INSERT INTO seat_claims (schedule_id, seat_number, kind, hold_id, holder_id, expires_at_ms)
               VALUES (?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, scheduleID, seat, ClaimHold, holdID, holderID, toMillis(expiresAt))
	if database.IsUniqueViolation(err) {
		return ErrSeatClaimed
	}
	return err
}

// DeleteHoldTx drops every HOLD claim of a hold and returns how many seats
// were freed.  BOOKED claims are never touched.
func (r *SeatClaimRepo) DeleteHoldTx(ctx context.Context, tx *sql.Tx, holdID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM seat_claims WHERE hold_id = ? AND kind = ?`, holdID, ClaimHold)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ConvertHoldTx turns the unexpired HOLD claims of a hold into BOOKED
// claims of bookingID in place, so the seats never pass through a free
// state.  It returns the number of seats converted.
func (r *SeatClaimRepo) ConvertHoldTx(ctx context.Context, tx *sql.Tx, holdID, bookingID string, now time.Time) (int64, error) {
	const q = `UPDATE seat_claims SET kind = ?, booking_id = ?, expires_at_ms = 0
               WHERE hold_id = ? AND kind = ? AND expires_at_ms > ?`
	res, err := tx.ExecContext(ctx, q, ClaimBooked, bookingID, holdID, ClaimHold, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteBookedTx releases the seats of a cancelled booking.
func (r *SeatClaimRepo) DeleteBookedTx(ctx context.Context, tx *sql.Tx, bookingID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM seat_claims WHERE booking_id = ? AND kind = ?`, bookingID, ClaimBooked)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveLocks lists the HOLD claims of a schedule that are still inside
// their window at now.  Claims that expired but were not swept yet are
// not reported; they no longer block acquisition.
func (r *SeatClaimRepo) ActiveLocks(ctx context.Context, q DBTX, scheduleID uint64, now time.Time) ([]model.SeatLock, error) {
	const sel = `SELECT seat_number, expires_at_ms FROM seat_claims
                 WHERE schedule_id = ? AND kind = ? AND expires_at_ms > ?
                 ORDER BY seat_number`
	rows, err := q.QueryContext(ctx, sel, scheduleID, ClaimHold, toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SeatLock{}
	for rows.Next() {
		var (
			l  model.SeatLock
			ms int64
		)
		if err := rows.Scan(&l.SeatNumber, &ms); err != nil {
			return nil, err
		}
		l.ExpiresAt = fromMillis(ms)
		out = append(out, l)
	}
	return out, rows.Err()
}

// BookedSeats lists the seats of a schedule held by Confirmed bookings.
func (r *SeatClaimRepo) BookedSeats(ctx context.Context, q DBTX, scheduleID uint64) ([]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seat_number FROM seat_claims WHERE schedule_id = ? AND kind = ? ORDER BY seat_number`,
		scheduleID, ClaimBooked)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int{}
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DB exposes the underlying handle for callers that compose reads.
func (r *SeatClaimRepo) DB() *sql.DB { return r.db }
