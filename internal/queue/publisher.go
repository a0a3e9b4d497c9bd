package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrBufferFull is returned by Publish when the outbound buffer cannot take
// another event.  The event is dropped.
var ErrBufferFull = errors.New("task event buffer full")

// DefaultBufferSize is the number of events Publish can queue while the
// broker is slow or unreachable.
const DefaultBufferSize = 256

// Publisher sends task events to RabbitMQ.  Publish only enqueues; Run owns
// one connection and channel, publishes queued events as persistent
// messages and re-dials with backoff when the broker goes away.
type Publisher struct {
	url    string
	events chan TaskEvent
}

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, events: make(chan TaskEvent, DefaultBufferSize)}
}

// Publish queues event for delivery without waiting on the broker.
func (p *Publisher) Publish(ctx context.Context, event TaskEvent) error {
	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Run delivers queued events until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	backoff := time.Second
	var pending *TaskEvent
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(p.url)
		if err != nil {
			log.Printf("task-publisher: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		pending, err = p.serve(ctx, conn, pending)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("task-publisher: connection lost: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

// serve opens a channel on conn and publishes through it.  On failure it
// returns the event that could not be sent so the next connection retries it.
func (p *Publisher) serve(ctx context.Context, conn *amqp.Connection, pending *TaskEvent) (*TaskEvent, error) {
	ch, err := conn.Channel()
	if err != nil {
		return pending, err
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		return pending, err
	}
	return p.drain(ctx, ch, pending)
}

// messageSender is the part of *amqp.Channel drain needs.
type messageSender interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// drain publishes pending (if any) and then every queued event until ctx is
// cancelled or a publish fails.
func (p *Publisher) drain(ctx context.Context, ch messageSender, pending *TaskEvent) (*TaskEvent, error) {
	for {
		if pending == nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case ev := <-p.events:
				pending = &ev
			}
		}
		msg, err := encode(*pending)
		if err != nil {
			log.Printf("task-publisher: dropping %s %s: %v", pending.Type, pending.TaskID, err)
			pending = nil
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = ch.PublishWithContext(pctx,
			"",              // default exchange
			TaskEventsQueue, // routing key = queue name
			false,           // mandatory
			false,           // immediate
			msg,
		)
		cancel()
		if err != nil {
			return pending, err
		}
		pending = nil
	}
}

func encode(event TaskEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Type:         string(event.Type),
		Body:         body,
	}, nil
}

// declare makes sure the durable queue exists (idempotent).
func declare(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		TaskEventsQueue, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	)
	return err
}
