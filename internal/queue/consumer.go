package queue // queue holds the broker event types and the reconnecting consumer

import (
	"context" // cancellation of the consume loop and handlers
	"errors"
	"fmt"
	"log"  // connection problems are logged, never fatal
	"time" // backoff timers

	amqp "github.com/rabbitmq/amqp091-go" // RabbitMQ client

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/monitoring"
)

// ErrMalformed marks a delivery that can never be processed.  Such
// messages are rejected without requeue.
var ErrMalformed = errors.New("malformed message")

// Handler processes the body of one delivery.  A nil error acks the
// message; ErrMalformed rejects it; any other error is treated as a
// transient failure and the message is requeued once.
type Handler func(ctx context.Context, body []byte) error

const maxBackoff = 30 * time.Second

// Consumer keeps a durable queue subscription alive across broker restarts.
type Consumer struct {
	Name     string
	URL      string
	Queue    string
	Prefetch int
	Handle   Handler
}

// Run dials the broker, consumes until the connection drops and then
// reconnects with exponential backoff capped at 30s.  It returns when ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		// Dial the broker.  When it is down, wait and retry with a
		// doubling delay so a restart does not flood the logs.
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("%s: failed to dial broker: %v; retrying in %s", c.Name, err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		// A successful dial resets the delay for the next outage.
		backoff = time.Second

		// consumeLoop blocks until the channel dies or ctx ends.
		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("%s: consume loop ended: %v; reconnecting", c.Name, err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Limit unacknowledged deliveries so a slow handler applies
	// backpressure instead of buffering the whole queue in memory.
	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 50
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		log.Printf("%s: set QoS failed: %v", c.Name, err)
	}
	// Declare the queue as durable so it survives a broker restart.  The
	// declaration is idempotent and matches the publisher's.
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	// Manual acks: settle decides the fate of each delivery.
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				// the broker closed the channel; Run reconnects
				return errors.New("deliveries channel closed")
			}
			c.settle(d, c.Handle(ctx, d.Body))
		}
	}
}

// settle acks, rejects or nacks d according to the handler result.
func (c *Consumer) settle(d amqp.Delivery, err error) {
	switch {
	case err == nil:
		monitoring.Delivery(c.Queue, "ack")
		if aerr := d.Ack(false); aerr != nil {
			log.Printf("%s: ack failed: %v", c.Name, aerr)
		}
	case errors.Is(err, ErrMalformed):
		log.Printf("%s: rejecting message: %v", c.Name, err)
		monitoring.Delivery(c.Queue, "reject")
		_ = d.Reject(false)
	default:
		// Requeue only the first failure.  A message that already came
		// back once is dropped rather than retried forever.
		requeue := !d.Redelivered
		log.Printf("%s: handle message failed: %v (requeue=%t)", c.Name, err, requeue)
		monitoring.Delivery(c.Queue, "nack")
		_ = d.Nack(false, requeue)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
