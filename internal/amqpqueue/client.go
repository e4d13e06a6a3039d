// Package amqpqueue carries savings events to the transfer workers over RabbitMQ.
package amqpqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/go-petr/roundup-savings/internal/domain"
	"github.com/go-petr/roundup-savings/internal/transferqueue"
)

// ErrMalformedMessage indicates a delivery that does not carry a savings event.
var ErrMalformedMessage = errors.New("malformed savings message")

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
	dialAttempts   = 6
)

// Client publishes and consumes savings messages on a durable direct exchange.
//
// Publishing and consuming use separate channels, so flow control on
// publishing never stalls deliveries.
type Client struct {
	conn         *amqp091.Connection
	publishCh    *amqp091.Channel
	consumeCh    *amqp091.Channel
	exchangeName string
	queueName    string

	// mu serializes publishing on publishCh.
	mu sync.Mutex
}

// Dial connects to the broker and declares the exchange and queue.
//
// Connection errors are retried with exponential backoff.
func Dial(ctx context.Context, url, exchangeName, queueName string) (*Client, error) {
	l := zerolog.Ctx(ctx)

	var (
		conn *amqp091.Connection
		err  error
	)

	for attempt := 0; attempt < dialAttempts; attempt++ {
		conn, err = amqp091.Dial(url)
		if err == nil {
			break
		}

		if !isConnectionError(err) || attempt == dialAttempts-1 {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}

		wait := exponentialBackoff(attempt)
		l.Warn().Err(err).Dur("retry_in", wait).Msg("broker unreachable")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	client := &Client{
		conn:         conn,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if client.publishCh, err = conn.Channel(); err != nil {
		client.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}

	if client.consumeCh, err = conn.Channel(); err != nil {
		client.Close()
		return nil, fmt.Errorf("open consume channel: %w", err)
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.publishCh.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.publishCh.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange.
	err = c.publishCh.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// One unacknowledged transfer per consumer.
	if err := c.consumeCh.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	return nil
}

// Notify publishes the savings event as a persistent message.
func (c *Client) Notify(ctx context.Context, event domain.SavingsEvent) error {
	l := zerolog.Ctx(ctx)

	body, err := NewSavingsMessage(event).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.publishCh.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	l.Info().
		Int64("expense_id", event.ExpenseID).
		Str("exchange", c.exchangeName).
		Str("queue", c.queueName).
		Msg("savings event published")

	return nil
}

// Run consumes savings messages until ctx is done.
//
// A message is acknowledged once handled. Failed messages are dropped, not
// requeued: the handler has already recorded the failure and a redelivery
// could move the tokens twice.
func (c *Client) Run(ctx context.Context, handle transferqueue.Handler) error {
	l := zerolog.Ctx(ctx)

	msgs, err := c.consumeCh.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	l.Info().Str("queue", c.queueName).Msg("consuming savings events")

	for {
		select {
		case <-ctx.Done():
			l.Info().Err(ctx.Err()).Msg("stopping savings event consumption")
			return nil
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			settle(ctx, delivery.Body, delivery, handle)
		}
	}
}

// acknowledger is the part of amqp091.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(ctx context.Context, body []byte, ack acknowledger, handle transferqueue.Handler) {
	l := zerolog.Ctx(ctx)

	msg, err := SavingsMessageFromJSON(body)
	if err != nil {
		l.Error().Err(err).Msg("cannot decode savings message")

		if err := ack.Nack(false, false); err != nil {
			l.Error().Err(err).Send()
		}

		return
	}

	if err := handle(ctx, msg.Event()); err != nil {
		l.Error().Err(err).Int64("expense_id", msg.ExpenseID).Msg("savings event handling failed")

		if err := ack.Nack(false, false); err != nil {
			l.Error().Err(err).Send()
		}

		return
	}

	if err := ack.Ack(false); err != nil {
		l.Error().Err(err).Send()
	}
}

// Close closes both channels and the connection.
func (c *Client) Close() error {
	for _, ch := range []*amqp091.Channel{c.publishCh, c.consumeCh} {
		if ch != nil {
			ch.Close()
		}
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << attempt
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}

	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}
