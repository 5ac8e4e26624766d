package amqp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	applog "expensetracker/internal/log"
)

// ChangeHandler processes one decoded change message. A returned error
// requeues the delivery.
type ChangeHandler func(ctx context.Context, msg *ExpenseChangedMessage) error

// Consumer reads ExpenseChangedMessage deliveries from a durable queue bound
// to the change exchange.
type Consumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	logger    *applog.Logger
}

// NewConsumer dials url, declares the exchange and queue and binds them on
// routingKey.
func NewConsumer(url, exchangeName, routingKey, queueName string, logger *applog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = applog.Discard()
	}

	conn, err := amqp091.DialConfig(url, amqpConfig(dialTimeout))
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupQueue(ch, exchangeName, routingKey, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	// One unacknowledged delivery at a time; every sync rewrites the sheet.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		logger:    logger.WithComponent(applog.ComponentAMQP),
	}, nil
}

func setupQueue(ch *amqp091.Channel, exchangeName, routingKey, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		queueName,    // queue name
		routingKey,   // routing key
		exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Consume delivers messages to handler until ctx is done or the broker
// closes the channel.
func (c *Consumer) Consume(ctx context.Context, handler ChangeHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming expense change messages", "queue", c.queueName)
	return consumeLoop(ctx, msgs, handler, c.logger)
}

// errChannelClosed is returned when the broker stops delivering.
var errChannelClosed = errors.New("message channel closed")

// consumeLoop acks handled messages, drops undecodable ones and requeues the
// ones whose handler failed.
func consumeLoop(ctx context.Context, msgs <-chan amqp091.Delivery, handler ChangeHandler, logger *applog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errChannelClosed
			}

			msg, err := ExpenseChangedMessageFromJSON(delivery.Body)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to unmarshal message", applog.FieldError, err.Error())
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				logger.ErrorContext(ctx, "Failed to handle message",
					applog.FieldError, err.Error(),
					applog.FieldExpenseID, msg.ID,
					"op", msg.Op)
				_ = delivery.Nack(false, true)
				continue
			}

			_ = delivery.Ack(false)
			logger.DebugContext(ctx, "Processed expense change message",
				applog.FieldExpenseID, msg.ID,
				"op", msg.Op)
		}
	}
}

// Close closes the channel and connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
