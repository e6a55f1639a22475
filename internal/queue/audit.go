package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// BookingAuditHandler appends one line per booking.confirmed message to
// dir/booking.log.
func BookingAuditHandler(dir string) Handler {
	var mu sync.Mutex
	return func(_ context.Context, body []byte) error {
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if ev.BookingID == "" {
			return fmt.Errorf("%w: bookingId is required", ErrMalformed)
		}

		mu.Lock()
		defer mu.Unlock()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()

		if _, err := f.WriteString(auditLine(ev)); err != nil {
			return fmt.Errorf("write log: %w", err)
		}
		return nil
	}
}

func auditLine(ev BookingConfirmedEvent) string {
	seats := make([]string, 0, len(ev.SeatNumbers))
	for _, n := range ev.SeatNumbers {
		seats = append(seats, fmt.Sprint(n))
	}
	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | holder_id=%s | schedule_id=%d | holds=%d | seats=[%s]",
		ev.ConfirmedAt, ev.BookingID, ev.HolderID, ev.ScheduleID, len(ev.HoldIDs), strings.Join(seats, ","))
	if ev.PaymentRef != "" {
		line += " | payment_ref=" + ev.PaymentRef
	}
	return line + "\n"
}
