package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/protocol"
)

const testReadTimeout = 2 * time.Second

// newTestServer starts an HTTP test server around a fresh registry with an
// allow-all origin config, and returns the registry plus the WebSocket URL.
func newTestServer(t *testing.T) (*Registry, string) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	SetConfig(cfg)
	t.Cleanup(func() {
		SetConfig(nil)
	})

	registry := NewRegistry()
	srv := httptest.NewServer(SetupRoutes(registry))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return registry, wsURL
}

// dialTestClient opens a WebSocket connection with an Origin header set.
func dialTestClient(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Origin", "http://localhost:8765")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

// readEvent reads and decodes the next frame from the connection.
func readEvent(t *testing.T, conn *websocket.Conn) protocol.Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(testReadTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	evt, err := protocol.Decode(raw)
	if err != nil {
		t.Fatalf("Received undecodable frame %s: %v", raw, err)
	}
	return evt
}

// sendFrame encodes the event and writes it as one frame.
func sendFrame(t *testing.T, conn *websocket.Conn, evt protocol.Event) {
	t.Helper()

	frame, err := protocol.Encode(evt)
	if err != nil {
		t.Fatalf("Failed to encode %#v: %v", evt, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
}

// expectHello reads the next frame and requires it to be a Hello event.
func expectHello(t *testing.T, conn *websocket.Conn) protocol.Hello {
	t.Helper()

	evt := readEvent(t, conn)
	hello, ok := evt.(protocol.Hello)
	if !ok {
		t.Fatalf("Expected Hello event, got %#v", evt)
	}
	return hello
}

// expectStatus reads the next frame and requires it to be a Status event with
// the given status message.
func expectStatus(t *testing.T, conn *websocket.Conn, statusMessage string) protocol.Status {
	t.Helper()

	evt := readEvent(t, conn)
	status, ok := evt.(protocol.Status)
	if !ok {
		t.Fatalf("Expected Status event %q, got %#v", statusMessage, evt)
	}
	if status.StatusMessage != statusMessage {
		t.Fatalf("Expected status %q, got %q", statusMessage, status.StatusMessage)
	}
	return status
}

// expectMessage reads the next frame and requires it to be a Message event.
func expectMessage(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()

	evt := readEvent(t, conn)
	msg, ok := evt.(protocol.Message)
	if !ok {
		t.Fatalf("Expected Message event, got %#v", evt)
	}
	return msg
}

// newOfflineSession builds a session without a transport for exercising room
// and registry logic directly.
func newOfflineSession(t *testing.T, registry *Registry, name string) *Session {
	t.Helper()

	s := newSession(registry.nextID(), registry, nil, "offline")
	s.setName(name)
	return s
}

// recvSessionEvent pops and decodes the next queued frame from an offline
// session's send buffer.
func recvSessionEvent(t *testing.T, s *Session) protocol.Event {
	t.Helper()

	select {
	case payload := <-s.send:
		evt, err := protocol.Decode(payload)
		if err != nil {
			t.Fatalf("Queued frame is undecodable: %v", err)
		}
		return evt
	case <-time.After(testReadTimeout):
		t.Fatal("Timed out waiting for a queued event")
		return nil
	}
}

// newUpgradedConn returns the server side of a live WebSocket connection,
// for tests that need a real transport without the full accept path.
func newUpgradedConn(t *testing.T) *websocket.Conn {
	t.Helper()

	conns := make(chan *websocket.Conn, 1)
	upgr := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgr.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	select {
	case conn := <-conns:
		t.Cleanup(func() {
			_ = conn.Close()
		})
		return conn
	case <-time.After(testReadTimeout):
		t.Fatal("Timed out waiting for the upgrade")
		return nil
	}
}

// expectNoSessionEvent asserts that nothing is queued for the session.
func expectNoSessionEvent(t *testing.T, s *Session) {
	t.Helper()

	select {
	case payload := <-s.send:
		t.Fatalf("Expected no queued event, got %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}
