// Package rabbitmq publishes booking lifecycle events. Publishing is best
// effort: callers log the error and carry on.
package rabbitmq

import (
	"context"
	"encoding/json"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

const Queue = "booking.events"

const (
	publishTimeout = 5 * time.Second
	dialTimeout    = 3 * time.Second
)

// Publisher dials per message. Booking traffic is low and this keeps the
// process free of reconnect handling.
type Publisher struct {
	url         string
	dialTimeout time.Duration
}

func New(url string) *Publisher { return &Publisher{url: url, dialTimeout: dialTimeout} }

// Publish gives up once ctx ends or publishTimeout passes, whichever is
// first, including while connecting to a broker that never answers.
func (p *Publisher) Publish(ctx context.Context, e domain.BookingEvent) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      p.dialer(ctx),
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	// unblocks channel and queue setup on a broker that stalls after the handshake
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so events survive broker restarts
	if _, err := ch.QueueDeclare(Queue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, "", Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		MessageId:    e.BookingID + ":" + e.Type,
		Body:         body,
	})
}

// dialer bounds the TCP connect and the AMQP handshake by ctx and
// dialTimeout. The library clears the deadline once the connection is open.
func (p *Publisher) dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(p.dialTimeout)
		if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
			deadline = dl
		}
		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(_ context.Context, e domain.BookingEvent) error {
	log.Debug().Str("type", e.Type).Str("booking", e.BookingID).Msg("event publishing disabled")
	return nil
}
