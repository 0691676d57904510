package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "devent"
	ExchangeKind = "topic"

	publishTimeout = 5 * time.Second
)

// publisher is the subset of *amqp.Channel used for publishing.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes changes as JSON to a RabbitMQ topic exchange.
type AMQPNotifier struct {
	conn    *amqp.Connection
	channel publisher
}

// NewAMQPNotifier dials url and declares the durable devent exchange.
func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &AMQPNotifier{conn: conn, channel: ch}, nil
}

// RoutingKey returns the topic a change is published under.
func RoutingKey(change Change) string {
	return "storage." + change.Key
}

// Message builds the AMQP publishing for a change.
func Message(change Change) (amqp.Publishing, error) {
	body, err := json.Marshal(change)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal change: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    change.At,
		Type:         string(change.Op),
		Body:         body,
	}, nil
}

// Notify publishes the change to the exchange.
func (n *AMQPNotifier) Notify(change Change) error {
	msg, err := Message(change)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := n.channel.PublishWithContext(ctx, ExchangeName, RoutingKey(change), false, false, msg); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
