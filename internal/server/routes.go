// Package server wires the HTTP handlers into a ServeMux.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes for the given registry.
func SetupRoutes(registry *Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler(registry))
	mux.HandleFunc("/ws", WebSocketHandler(registry))
	return mux
}
