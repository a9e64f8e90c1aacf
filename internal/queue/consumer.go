package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Consumer drains every event queue and appends one line per message to
// a log file.
type Consumer struct {
	URL     string
	LogPath string // default logs/events.log
}

// Run connects, declares the queues and consumes until ctx is done. A lost
// connection is redialled with exponential backoff capped at 30s.
func (c Consumer) Run(ctx context.Context) error {
	if c.URL == "" {
		return errors.New("event consumer: no broker url")
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("event-consumer: failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("event-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

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

func (c Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("event-consumer: set QoS failed")
	}

	deliveries := make(chan amqp.Delivery)
	for _, name := range Queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			return fmt.Errorf("channel closed: %v", err)
		case d := <-deliveries:
			if err := c.record(d.Body); err != nil {
				log.Error().Err(err).Str("queue", d.RoutingKey).Msg("event-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c Consumer) record(body []byte) error {
	line, err := FormatLine(body)
	if err != nil {
		return err
	}
	path := c.LogPath
	if path == "" {
		path = filepath.Join("logs", "events.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as one human-friendly log line. The payload
// shape is chosen by its "type" field.
func FormatLine(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", errors.New("malformed event payload")
	}
	ev := gjson.ParseBytes(body)
	typ := ev.Get("type").String()
	switch {
	case strings.HasPrefix(typ, "booking."):
		rooms := []string{}
		for _, r := range ev.Get("rooms").Array() {
			rooms = append(rooms, r.String())
		}
		return fmt.Sprintf("[%s] %s | booking_id=%d | number=%s | guest=%q | status=%s | stay=%s..%s | rooms=[%s] | actor=%d\n",
			ev.Get("occurred_at").String(), typ, ev.Get("booking_id").Uint(), ev.Get("booking_number").String(),
			ev.Get("guest_name").String(), ev.Get("status").String(), ev.Get("check_in").String(),
			ev.Get("check_out").String(), strings.Join(rooms, ","), ev.Get("actor_id").Uint()), nil
	case typ == InquiryReminder:
		return fmt.Sprintf("[%s] %s | inquiry_id=%s | name=%q | contact=%s | due=%s | note=%q\n",
			ev.Get("occurred_at").String(), typ, ev.Get("inquiry_id").String(), ev.Get("name").String(),
			ev.Get("contact").String(), ev.Get("remind_at").String(), ev.Get("note").String()), nil
	}
	return "", fmt.Errorf("unknown event type %q", typ)
}
