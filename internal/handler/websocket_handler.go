package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"studio-backend/internal/domain"
	"studio-backend/internal/middleware"
	ws "studio-backend/internal/websocket"
)

// createUpgrader accepts same-origin requests, requests without an Origin
// header, and the configured origins ("*" allows any).
func createUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// WebSocketHandler streams recorded audit entries to admins
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		upgrader: createUpgrader(allowedOrigins),
	}
}

// HandleConnection upgrades an authenticated request and subscribes it to the
// audit feed. The optional min_severity query parameter filters entries.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	minSeverity := domain.SeverityInfo
	if v := r.URL.Query().Get("min_severity"); v != "" {
		minSeverity = domain.Severity(v)
		if !minSeverity.Valid() {
			writeError(w, http.StatusBadRequest, "invalid min_severity")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("username", session.Username))
		return
	}

	client := ws.NewClient(h.hub, conn, session.Username, minSeverity)
	if err := client.WriteJSON(ws.ServerMessage{
		Type:        ws.MessageTypeWelcome,
		Username:    session.Username,
		MinSeverity: minSeverity,
	}); err != nil {
		_ = conn.Close()
		return
	}

	if err := h.hub.Register(client); err != nil {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
