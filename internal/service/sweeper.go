package service

import (
	"context"
	"log"
	"time"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/monitoring"
)

// Sweeper periodically expires holds whose window has elapsed.  It races
// freely with release and finalize; the guarded transitions in the ledger
// decide the winner.
type Sweeper struct {
	Ledger   *Ledger
	Interval time.Duration
	Batch    int
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("sweeper: started interval=%s batch=%d", interval, s.batch())
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				log.Printf("sweeper: sweep failed: %v", err)
			}
		}
	}
}

// SweepOnce expires every hold due at the current time, one batch per
// transaction, and returns how many holds it expired.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()
	defer monitoring.Sweep(start)

	now := s.Ledger.Now.now()
	total := 0
	for {
		expired, err := s.Ledger.ExpireDue(ctx, now, s.batch())
		if err != nil {
			return total, err
		}
		total += len(expired)
		monitoring.Expired(len(expired))
		if len(expired) < s.batch() {
			break
		}
	}
	if total > 0 {
		log.Printf("sweeper: expired %d holds", total)
	}
	return total, nil
}

func (s *Sweeper) batch() int {
	if s.Batch <= 0 {
		return 200
	}
	return s.Batch
}
