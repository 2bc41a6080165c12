// Package server exposes the HTTP handlers: the WebSocket upgrade endpoint
// and the health check.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns the handler for WebSocket upgrade requests. It
// validates that the request uses the GET method, upgrades the connection,
// and hands it to the registry, which runs the session until the connection
// closes.
func WebSocketHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		registry.Accept(conn, r.RemoteAddr)
	}
}

// HealthHandler returns a plain text health check reporting how many sessions
// and rooms the registry currently holds.
func HealthHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(w, "roomchat server is running: %d sessions, %d rooms",
			registry.LiveCount(), registry.RoomCount())
	}
}
