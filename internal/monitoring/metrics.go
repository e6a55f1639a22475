// Package monitoring exposes the Prometheus collectors of the reservation
// core.  Collectors are registered on the default registry and served on
// /metrics.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	holdRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_hold_requests_total",
			Help: "Seat hold attempts by outcome",
		},
		[]string{"outcome"},
	)

	heldSeats = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_hold_seats_total",
			Help: "Seats granted to successful holds",
		},
	)

	holdReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_hold_releases_total",
			Help: "Explicit hold releases by outcome",
		},
		[]string{"outcome"},
	)

	holdExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seat_hold_expirations_total",
			Help: "Holds moved to EXPIRED by the sweeper",
		},
	)

	finalizeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_finalize_requests_total",
			Help: "Finalize attempts by outcome",
		},
		[]string{"outcome"},
	)

	bookingCancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_cancellations_total",
			Help: "Confirmed bookings cancelled by their holder",
		},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seat_hold_sweep_duration_seconds",
			Help:    "Duration of one expiration sweep",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	consumedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_total",
			Help: "Broker deliveries by queue and settlement",
		},
		[]string{"queue", "result"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

// Hold records one acquire attempt; seats is only counted for OutcomeOK.
func Hold(outcome string, seats int) {
	holdRequests.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		heldSeats.Add(float64(seats))
	}
}

func Release(outcome string) { holdReleases.WithLabelValues(outcome).Inc() }

func Finalize(outcome string) { finalizeRequests.WithLabelValues(outcome).Inc() }

func Expired(n int) { holdExpirations.Add(float64(n)) }

func Cancelled() { bookingCancellations.Inc() }

// Sweep observes the duration of a sweep that started at start.
func Sweep(start time.Time) { sweepDuration.Observe(time.Since(start).Seconds()) }

// Delivery counts a settled broker message.
func Delivery(queue, result string) { consumedMessages.WithLabelValues(queue, result).Inc() }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
