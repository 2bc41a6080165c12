// Package server implements the room chat service: the registry that assigns
// user ids and tracks rooms, the per-connection sessions, room broadcast
// fan-out, and the HTTP surface that accepts WebSocket connections.
//
// The implementation is organized into specialized files for configuration,
// the registry, rooms, sessions, routing, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
