package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"studio-backend/internal/domain"
	"studio-backend/internal/observability"
)

var (
	ErrHubClosed   = errors.New("audit feed closed")
	ErrFeedBacklog = errors.New("audit feed backlog full")
)

// BroadcastMessage is an encoded feed message and the severity it carries
type BroadcastMessage struct {
	Severity domain.Severity
	Message  []byte
}

// Hub fans recorded audit entries out to connected admin clients. It is an
// audit sink; Publish never blocks the caller.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan *BroadcastMessage
	register   chan *Client
	unregister chan *Client

	done        chan struct{}
	subscribers atomic.Int64
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *BroadcastMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("audit feed shutting down")
			return ctx.Err()

		case client := <-h.register:
			h.clients[client] = true
			h.subscribers.Add(1)
			observability.AuditFeedSubscribers.Inc()
			slog.Info("audit feed subscriber registered",
				slog.String("username", client.username),
				slog.String("min_severity", string(client.minSeverity)))

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			for client := range h.clients {
				if !message.Severity.AtLeast(client.minSeverity) {
					continue
				}
				select {
				case client.send <- message.Message:
					observability.AuditFeedMessagesSent.Inc()
				default:
					// Slow subscriber, drop it
					h.unregisterClient(client)
				}
			}
		}
	}
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.subscribers.Add(-1)
	observability.AuditFeedSubscribers.Dec()
	slog.Info("audit feed subscriber unregistered", slog.String("username", client.username))
}

// shutdown performs graceful cleanup of all connections
func (h *Hub) shutdown() {
	close(h.done)

	for client := range h.clients {
		h.unregisterClient(client)
	}

	slog.Info("audit feed shutdown complete")
}

// Name identifies the hub as an audit sink.
func (h *Hub) Name() string {
	return "feed"
}

// Publish queues entry for every subscriber whose severity filter admits it.
func (h *Hub) Publish(ctx context.Context, entry domain.AuditLogEntry) error {
	data, err := json.Marshal(ServerMessage{Type: MessageTypeAuditEvent, Entry: &entry})
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.broadcast <- &BroadcastMessage{Severity: entry.Severity, Message: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrFeedBacklog
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	return int(h.subscribers.Load())
}

// Register registers a client with the hub
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
