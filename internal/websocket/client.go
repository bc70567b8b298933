package websocket

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"studio-backend/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 512
)

const (
	MessageTypeAuditEvent = "audit_event"
	MessageTypeWelcome    = "welcome"
)

// ServerMessage is the envelope of every feed message.
type ServerMessage struct {
	Type        string                `json:"type"`
	Entry       *domain.AuditLogEntry `json:"entry,omitempty"`
	Username    string                `json:"username,omitempty"`
	MinSeverity domain.Severity       `json:"min_severity,omitempty"`
}

// Client is one admin connected to the audit feed. The feed is one-way;
// inbound frames other than control frames are discarded.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	username    string
	minSeverity domain.Severity
	writeMu     sync.Mutex
	closed      atomic.Bool
}

// NewClient creates a feed client. An invalid minSeverity subscribes to everything.
func NewClient(hub *Hub, conn *websocket.Conn, username string, minSeverity domain.Severity) *Client {
	if !minSeverity.Valid() {
		minSeverity = domain.SeverityInfo
	}
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 64),
		username:    username,
		minSeverity: minSeverity,
	}
}

// ReadPump keeps the read deadline alive and detects disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline",
			slog.String("error", err.Error()),
			slog.String("username", c.username))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error",
					slog.String("error", err.Error()),
					slog.String("username", c.username))
			}
			return
		}
	}
}

// WritePump delivers queued messages and pings until the send channel closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.writeMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WriteJSON writes v directly, outside the hub. Used for the welcome frame.
func (c *Client) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		slog.Warn("failed to set write deadline",
			slog.String("error", err.Error()),
			slog.String("username", c.username))
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) closeConnection() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		_ = c.conn.Close()
		c.writeMu.Unlock()
	}
}
