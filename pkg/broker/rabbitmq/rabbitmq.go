// Package rabbitmq wraps an AMQP channel used as the receipt-delivery queue.
// Sale receipts (email / WhatsApp) are rendered and sent by an external
// consumer; the platform only enqueues jobs and records delivery flags.
package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func New(url, queue string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq - New - Dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq - New - Channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq - New - QueueDeclare %s: %w", queue, err)
	}

	return &RabbitMQ{conn: conn, channel: ch, queue: queue}, nil
}

// Publish enqueues a persistent message onto the configured queue.
func (r *RabbitMQ) Publish(ctx context.Context, body []byte) error {
	err := r.channel.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq - Publish %s: %w", r.queue, err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
