package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/model"
)

// ScheduleSource supplies the catalog facts the core depends on.
type ScheduleSource interface {
	GetByID(ctx context.Context, id uint64) (*model.Schedule, error)
}

// Clock returns the current time.  Tests swap it for a fake.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// inTx runs fn inside a transaction and commits when fn returns nil.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
