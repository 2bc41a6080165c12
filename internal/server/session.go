// Package server manages individual chat sessions, handling the read/write
// pumps, event dispatch, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/protocol"
)

const (
	// DefaultUserName is the display name assigned to every new connection
	// until the client changes it.
	DefaultUserName = "anonymous"

	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
)

// Session owns the lifecycle of exactly one client connection. It translates
// inbound frames into events, dispatches them against its current room, and
// queues outbound events for its writer pump. A Session is owned by the
// goroutine running its receive loop; rooms only hold a reference to it.
type Session struct {
	id       string
	registry *Registry
	conn     *websocket.Conn
	addr     string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mutex sync.RWMutex
	name  string
	room  *Room
}

func newSession(id string, registry *Registry, conn *websocket.Conn, addr string) *Session {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Session{
		id:       id,
		registry: registry,
		conn:     conn,
		addr:     addr,
		name:     DefaultUserName,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns the server-assigned user id, stable for the connection's lifetime.
func (s *Session) ID() string {
	return s.id
}

// Name returns the user's current display name.
func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.name
}

func (s *Session) setName(name string) (oldName string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	oldName = s.name
	s.name = name
	return oldName
}

// Room returns the room the session currently belongs to.
func (s *Session) Room() *Room {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.room
}

func (s *Session) setRoom(room *Room) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.room = room
}

// run drives the session to completion: it starts the writer pump, sends the
// Hello frame before anything else, joins the initial room, and then consumes
// inbound frames until the transport closes.
func (s *Session) run(initial *Room) {
	go s.writePump()

	if err := s.sendEvent(protocol.Hello{UserID: s.id}); err != nil {
		log.Printf("Failed to queue hello for user %s: %v", s.id, err)
	}

	s.setRoom(initial)
	initial.Join(s)

	s.readPump()
}

// setupReadConnection arms the read deadline and keeps it refreshed on pongs,
// so the keepalive pings from the writer pump detect a dead peer instead of
// leaving the receive loop blocked forever.
func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", s.addr, err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", s.addr, err)
		}
		return nil
	})
}

// readPump processes inbound frames strictly in arrival order until the
// transport closes, then tears the session down.
func (s *Session) readPump() {
	defer s.teardown()

	s.setupReadConnection()

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.logConnectionEnd(err)
			return
		}
		s.handleFrame(frame)
	}
}

// handleFrame decodes and dispatches one inbound frame. Decode failures are
// logged and discarded; the loop continues and no reply is sent.
func (s *Session) handleFrame(frame []byte) {
	evt, err := protocol.Decode(frame)
	if err != nil {
		log.Printf("Ignoring malformed frame from user %s (%s): %v", s.id, s.addr, err)
		return
	}

	switch evt := evt.(type) {
	case protocol.SendMessage:
		s.Room().BroadcastMessage(s, evt.Text)

	case protocol.JoinRoom:
		if evt.RoomName != s.Room().Name() {
			s.transferTo(evt.RoomName)
		}

	case protocol.ChangeName:
		oldName := s.setName(evt.NewName)
		s.Room().NotifyRename(s, oldName)

	case protocol.Hello, protocol.Message, protocol.Status:
		log.Printf("Ignoring unsupported %T event from user %s", evt, s.id)
	}
}

// transferTo moves the session to the named room: leave the old room (which
// announces the departure), update the room reference, then join the new room,
// creating it on demand. The lookup-or-create is a single registry operation,
// so two sessions transferring into the same new room cannot split it in two.
func (s *Session) transferTo(roomName string) {
	s.Room().Leave(s)

	room := s.registry.GetOrCreateRoom(roomName)
	s.setRoom(room)
	room.Join(s)
}

// teardown runs once the receive loop has ended, however it ended. Leaving the
// room is explicit here so an abrupt disconnect announces "left room" exactly
// like a requested leave.
func (s *Session) teardown() {
	if room := s.Room(); room != nil {
		room.Leave(s)
	}
	s.close()
}

// close signals the writer pump to flush and shut the connection. Safe to call
// from any goroutine, any number of times.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) sendEvent(evt protocol.Event) error {
	payload, err := protocol.Encode(evt)
	if err != nil {
		return err
	}
	return s.enqueue(payload)
}

// enqueue hands a serialized frame to the writer pump. It never blocks: a
// closed session or a full buffer is a delivery failure for this member only.
func (s *Session) enqueue(payload []byte) error {
	select {
	case <-s.done:
		return &DeliveryFailureError{UserID: s.id, Reason: "session closed"}
	default:
	}

	select {
	case s.send <- payload:
		return nil
	default:
		return &DeliveryFailureError{UserID: s.id, Reason: "send buffer full"}
	}
}

// writePump serializes all writes to the connection: queued frames, keepalive
// pings, and the final close handshake.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.closeConnection()
	}()

	for {
		select {
		case payload := <-s.send:
			if !s.writeFrame(payload) {
				return
			}

		case <-s.done:
			s.flushPending()
			s.writeCloseMessage()
			return

		case <-ticker.C:
			if !s.writePing() {
				return
			}
		}
	}
}

// writeFrame writes one event as its own text frame. Every event gets its own
// transport message; frames are never coalesced.
func (s *Session) writeFrame(payload []byte) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for %s: %v", s.addr, err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing frame to %s: %v", s.addr, err)
		}
		return false
	}
	return true
}

// flushPending drains frames already queued at close time, best effort.
func (s *Session) flushPending() {
	for {
		select {
		case payload := <-s.send:
			if !s.writeFrame(payload) {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) writeCloseMessage() {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", s.addr, err)
		}
	}
}

func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", s.addr, err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing ping message to %s: %v", s.addr, err)
		}
		return false
	}
	return true
}

// closeConnection closes the transport once the writer pump exits, which in
// turn unblocks the receive loop.
func (s *Session) closeConnection() {
	if err := s.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s: %v", s.addr, err)
		}
	}
}

// logConnectionEnd classifies how the transport ended. Both clean and errored
// closes are terminal for this session only.
func (s *Session) logConnectionEnd(err error) {
	switch {
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway):
		log.Printf("User %s disconnected: %v", s.id, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("User %s connection closed: %v", s.id, err)
	default:
		log.Printf("User %s: %v: %v", s.id, ErrConnectionTerminated, err)
	}
}
