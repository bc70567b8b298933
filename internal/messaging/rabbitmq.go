package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"studio-backend/internal/domain"
)

const (
	// AuditExchange carries every audit entry, routed by severity and event type.
	AuditExchange = "studio.audit"
	// AlertsQueue receives warning and critical entries.
	AlertsQueue = "audit.alerts"
)

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:    conn,
		channel: ch,
	}

	if err := rmq.Setup(); err != nil {
		rmq.Close()
		return nil, err
	}

	return rmq, nil
}

// NewRabbitMQWithRetry dials until it succeeds, attempts run out or ctx ends.
func NewRabbitMQWithRetry(ctx context.Context, url string, attempts int, delay time.Duration) (*RabbitMQ, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		rmq, err := NewRabbitMQ(url)
		if err == nil {
			return rmq, nil
		}
		lastErr = err

		slog.Warn("rabbitmq not ready, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("rabbitmq unavailable after %d attempts: %w", attempts, lastErr)
}

// NewRabbitMQWithChannel wraps an already open channel and declares the topology.
func NewRabbitMQWithChannel(ch Channel) (*RabbitMQ, error) {
	rmq := &RabbitMQ{channel: ch}
	if err := rmq.Setup(); err != nil {
		return nil, err
	}
	return rmq, nil
}

func (r *RabbitMQ) Setup() error {
	if err := r.channel.ExchangeDeclare(
		AuditExchange, // name
		"topic",       // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	); err != nil {
		return fmt.Errorf("failed to declare audit exchange: %w", err)
	}

	if _, err := r.channel.QueueDeclare(
		AlertsQueue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", AlertsQueue, err)
	}

	for _, key := range []string{"audit.critical.#", "audit.warning.#"} {
		if err := r.channel.QueueBind(
			AlertsQueue,   // queue name
			key,           // routing key
			AuditExchange, // exchange
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to bind %s queue to %s: %w", AlertsQueue, key, err)
		}
	}

	slog.Info("rabbitmq setup completed successfully")
	return nil
}

// RoutingKey is audit.<severity>.<event type>, e.g. audit.critical.rate_limit_exceeded.
func RoutingKey(entry domain.AuditLogEntry) string {
	return "audit." + string(entry.Severity) + "." + strings.ToLower(string(entry.EventType))
}

// Name identifies the publisher as an audit sink.
func (r *RabbitMQ) Name() string {
	return "rabbitmq"
}

// Publish sends an audit entry to the audit exchange.
func (r *RabbitMQ) Publish(ctx context.Context, entry domain.AuditLogEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		AuditExchange,
		RoutingKey(entry),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    entry.ID,
			Timestamp:    entry.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish audit entry: %w", err)
	}

	slog.Debug("published audit entry",
		slog.String("audit_id", entry.ID),
		slog.String("event_type", string(entry.EventType)))
	return nil
}

func (r *RabbitMQ) ConsumeAlerts() (<-chan amqp.Delivery, error) {
	msgs, err := r.channel.Consume(
		AlertsQueue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming audit alerts",
		slog.String("queue", AlertsQueue))
	return msgs, nil
}

func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
