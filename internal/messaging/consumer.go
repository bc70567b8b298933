package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"studio-backend/internal/domain"
)

// AlertHandler is notified of each warning or critical audit entry.
type AlertHandler interface {
	HandleAlert(ctx context.Context, entry domain.AuditLogEntry) error
}

type AlertConsumer struct {
	rmq            *RabbitMQ
	handler        AlertHandler
	minSeverity    domain.Severity
	processTimeout time.Duration
}

// NewAlertConsumer forwards entries at or above minSeverity to handler.
func NewAlertConsumer(rmq *RabbitMQ, handler AlertHandler, minSeverity domain.Severity) *AlertConsumer {
	if !minSeverity.Valid() {
		minSeverity = domain.SeverityCritical
	}
	return &AlertConsumer{
		rmq:            rmq,
		handler:        handler,
		minSeverity:    minSeverity,
		processTimeout: 30 * time.Second,
	}
}

// Start begins consuming in a background goroutine. done is closed when it stops.
func (c *AlertConsumer) Start(ctx context.Context) (done <-chan struct{}, err error) {
	msgs, err := c.rmq.ConsumeAlerts()
	if err != nil {
		return nil, err
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		c.Run(ctx, msgs)
	}()
	return stopped, nil
}

// Run processes deliveries until ctx ends or msgs closes.
func (c *AlertConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping alert consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Warn("alert consumer channel closed")
				return
			}

			msgCtx, cancel := context.WithTimeout(ctx, c.processTimeout)
			c.process(msgCtx, msg.Body)
			cancel()

			if msg.Acknowledger != nil {
				if err := msg.Ack(false); err != nil {
					slog.Error("failed to ack alert", slog.String("error", err.Error()))
				}
			}
		}
	}
}

func (c *AlertConsumer) process(ctx context.Context, body []byte) {
	var entry domain.AuditLogEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		slog.Error("error unmarshaling audit entry",
			slog.String("error", err.Error()),
			slog.Int("body_size", len(body)))
		return
	}

	if !entry.Severity.AtLeast(c.minSeverity) {
		return
	}

	if err := c.handler.HandleAlert(ctx, entry); err != nil {
		slog.Error("alert handler failed",
			slog.String("audit_id", entry.ID),
			slog.String("event_type", string(entry.EventType)),
			slog.String("error", err.Error()))
	}
}
