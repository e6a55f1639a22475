package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// PaymentFinalizer turns a completed payment into a booking.  It must
// return nil for business rejections (expired or foreign holds) so the
// message is acked, and an error only for failures worth a retry.
type PaymentFinalizer interface {
	FinalizePayment(ctx context.Context, ev PaymentCompletedEvent) error
}

// PaymentHandler decodes payment.completed messages and hands them to f.
func PaymentHandler(f PaymentFinalizer) Handler {
	return func(ctx context.Context, body []byte) error {
		ev, err := decodePayment(body)
		if err != nil {
			return err
		}
		return f.FinalizePayment(ctx, ev)
	}
}

func decodePayment(body []byte) (PaymentCompletedEvent, error) {
	var ev PaymentCompletedEvent
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case ev.ScheduleID == 0:
		return ev, fmt.Errorf("%w: scheduleId is required", ErrMalformed)
	case len(ev.HoldIDs) == 0:
		return ev, fmt.Errorf("%w: holdIds is required", ErrMalformed)
	case ev.HolderID == "":
		return ev, fmt.Errorf("%w: holderId is required", ErrMalformed)
	}
	return ev, nil
}
