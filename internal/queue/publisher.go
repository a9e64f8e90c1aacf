package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	dialTimeout   = 5 * time.Second
	redialBackoff = 10 * time.Second
)

// ErrBrokerDown is returned while a failed dial is still backing off.
var ErrBrokerDown = errors.New("rabbitmq: broker unavailable")

// Publisher sends events to RabbitMQ on the default exchange, routing key
// = queue name. It keeps one connection open and redials after the broker
// drops it, at most once per redialBackoff. Errors are logged and returned
// so callers can ignore them without interrupting the request that
// produced the event.
type Publisher struct {
	url string

	// lock is a one-slot semaphore so waiters can give up on ctx
	lock     chan struct{}
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	retryAt  time.Time
}

// NewPublisher returns a publisher for url. An empty url yields a publisher
// that drops every event.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, lock: make(chan struct{}, 1), declared: map[string]bool{}}
}

// Enabled reports whether events go anywhere.
func (p *Publisher) Enabled() bool { return p != nil && p.url != "" }

func (p *Publisher) acquire(ctx context.Context) error {
	select {
	case p.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) release() { <-p.lock }

// channel returns an open channel, dialling if needed. The dial is bounded
// by ctx's deadline and dialTimeout. Caller holds the lock.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if time.Now().Before(p.retryAt) {
			return nil, ErrBrokerDown
		}
		timeout := dialTimeout
		if dl, ok := ctx.Deadline(); ok {
			if left := time.Until(dl); left < timeout {
				timeout = left
			}
		}
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(timeout),
		})
		if err != nil {
			p.retryAt = time.Now().Add(redialBackoff)
			return nil, err
		}
		p.conn = conn
		p.declared = map[string]bool{}
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

// Publish marshals event and sends it persistently to the queue named key.
func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("queue", key).Msg("rabbitmq: marshal event failed")
		return err
	}

	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()
	ch, err := p.channel(ctx)
	if err != nil {
		log.Error().Err(err).Str("queue", key).Msg("rabbitmq: connect failed")
		return err
	}
	if !p.declared[key] {
		// durable so messages survive broker restarts
		if _, err := ch.QueueDeclare(key, true, false, false, false, nil); err != nil {
			log.Error().Err(err).Str("queue", key).Msg("rabbitmq: queue declare failed")
			return err
		}
		p.declared[key] = true
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", key, false, false, pub); err != nil {
		log.Error().Err(err).Str("queue", key).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.lock <- struct{}{}
	defer p.release()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.ch, p.conn = nil, nil
	return errors.Join(errs...)
}
