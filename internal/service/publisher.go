package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hqhuy22/Bus-ticket-booking-system-sub003/internal/queue"
)

// EventPublisher emits booking lifecycle events.  Publishing happens after
// the store transaction has committed; a failure is logged by the caller
// and never undoes the state change.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// AMQPPublisher publishes persistent JSON messages to durable queues on
// the default exchange.  The connection is dialed lazily and redialed
// after the broker drops it.
type AMQPPublisher struct {
	url  string
	mu   sync.Mutex
	conn *amqp.Connection
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher { return &AMQPPublisher{url: url} }

func (p *AMQPPublisher) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return p.publish(ctx, queue.BookingConfirmedQueue, ev)
}

func (p *AMQPPublisher) BookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error {
	return p.publish(ctx, queue.BookingCancelledQueue, ev)
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, nil
}

func (p *AMQPPublisher) publish(ctx context.Context, queueName string, event any) error {
	ch, err := p.channel()
	if err != nil {
		log.Printf("rabbitmq: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
		return err
	}
	return nil
}

// Close drops the broker connection, if any.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// NopPublisher drops every event.  Used when BROKER_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) BookingConfirmed(context.Context, queue.BookingConfirmedEvent) error { return nil }

func (NopPublisher) BookingCancelled(context.Context, queue.BookingCancelledEvent) error { return nil }
