// Package server exposes HTTP handlers for WebSocket upgrades, health
// checks, and transport statistics.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketHandler returns the handler for WebSocket upgrade requests. It
// validates the method and origin, upgrades the connection, assigns a
// connection id, and registers the new client with the hub, which launches
// the pump goroutines.
func WebSocketHandler(hub *Hub, cfg *Config) http.HandlerFunc {
	checker := newOriginChecker(cfg.AllowedOrigins)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checker.check,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		client := NewClient(conn, hub, uuid.NewString(), r.RemoteAddr, cfg)
		hub.register <- client
	}
}

// HealthHandler provides a simple health check endpoint that reports the
// server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomcast server is running!")
}

// statsResponse is the /stats payload: the transport-level client count
// plus the core's registry, room, and namespace counts.
type statsResponse struct {
	Clients     int `json:"clients"`
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Namespaces  int `json:"namespaces"`
}

// StatsHandler reports the number of connected clients and the core's
// current scope counts.
func StatsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		core := hub.Stats()
		w.Header().Set("Content-Type", "application/json")
		stats := statsResponse{
			Clients:     hub.ClientCount(),
			Connections: core.Connections,
			Rooms:       core.Rooms,
			Namespaces:  core.Namespaces,
		}
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			slog.Warn("error writing stats response", "error", err)
		}
	}
}
