// Package queue defines the message payloads exchanged over the broker and
// the consumers that react to them.
package queue

// Queue names.  Every queue is declared durable.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
	PaymentCompletedQueue = "payment.completed"
)

// BookingConfirmedEvent is published after a finalize commits.  It carries
// enough information for downstream consumers to log or notify without
// reading the reservation store.
type BookingConfirmedEvent struct {
	BookingID   string   `json:"bookingId"`
	ScheduleID  uint64   `json:"scheduleId"`
	HolderID    string   `json:"holderId"`
	HoldIDs     []string `json:"holdIds"`
	SeatNumbers []int    `json:"seatNumbers"`
	PaymentRef  string   `json:"paymentRef,omitempty"`
	ConfirmedAt string   `json:"confirmedAt"`
}

// BookingCancelledEvent is published when a holder cancels a booking and
// its seats return to the pool.
type BookingCancelledEvent struct {
	BookingID   string `json:"bookingId"`
	ScheduleID  uint64 `json:"scheduleId"`
	HolderID    string `json:"holderId"`
	SeatNumbers []int  `json:"seatNumbers"`
	CancelledAt string `json:"cancelledAt"`
}

// PaymentCompletedEvent is the external payment-completion signal.  The
// payment service publishes it once funds are confirmed; the core does not
// validate the payment itself.
type PaymentCompletedEvent struct {
	ScheduleID uint64   `json:"scheduleId"`
	HoldIDs    []string `json:"holdIds"`
	HolderID   string   `json:"holderId"`
	PaymentRef string   `json:"paymentRef"`
}
