// Package server coordinates the process-wide chat state: the user id
// counter, the room map, the permanent lobby, and the set of live sessions.
package server

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// DefaultRoomName is the room every connection starts in. The lobby exists
// for the whole process lifetime.
const DefaultRoomName = "lobby"

// Registry owns the process-wide chat state. It is created once at startup,
// shared by reference with every session, and never torn down. All mutation
// goes through its locks, so concurrent joins, leaves, transfers, and accepts
// never corrupt the room map or double-allocate an id.
type Registry struct {
	lastID atomic.Uint64

	mutex sync.RWMutex
	rooms map[string]*Room
	lobby *Room

	liveMutex sync.Mutex
	live      map[*Session]struct{}
}

// NewRegistry creates a registry with the lobby already registered.
func NewRegistry() *Registry {
	r := &Registry{
		rooms: make(map[string]*Room),
		live:  make(map[*Session]struct{}),
	}
	r.lobby = r.CreateRoom(DefaultRoomName)
	return r
}

// Lobby returns the permanent default room.
func (r *Registry) Lobby() *Room {
	return r.lobby
}

// GetRoom returns the room registered under name, or nil if there is none.
func (r *Registry) GetRoom(name string) *Room {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.rooms[name]
}

// CreateRoom constructs a room, registers it under name, and returns it.
// It does not check for an existing room of the same name; looking up first
// is the caller's responsibility.
func (r *Registry) CreateRoom(name string) *Room {
	room := NewRoom(name)

	r.mutex.Lock()
	r.rooms[name] = room
	r.mutex.Unlock()

	log.Printf("Created room %q", name)
	return room
}

// GetOrCreateRoom returns the room registered under name, creating and
// registering it if absent. The check and the insert happen under one lock,
// so concurrent callers racing on the same name always receive the same room
// and a name can never refer to two rooms.
func (r *Registry) GetOrCreateRoom(name string) *Room {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if room, exists := r.rooms[name]; exists {
		return room
	}

	room := NewRoom(name)
	r.rooms[name] = room
	log.Printf("Created room %q", name)
	return room
}

// RoomCount returns the number of registered rooms.
func (r *Registry) RoomCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.rooms)
}

// LiveCount returns the number of sessions currently running.
func (r *Registry) LiveCount() int {
	r.liveMutex.Lock()
	defer r.liveMutex.Unlock()
	return len(r.live)
}

// nextID allocates a fresh user id. Ids increase monotonically for the life
// of the process and are never reused.
func (r *Registry) nextID() string {
	return strconv.FormatUint(r.lastID.Add(1), 10)
}

// Accept binds a new connection to a session in the lobby and runs it to
// completion. The live registration is dropped on every exit path.
func (r *Registry) Accept(conn *websocket.Conn, addr string) {
	session := newSession(r.nextID(), r, conn, addr)
	log.Printf("Accepted connection from %s as user %s", addr, session.ID())

	r.addLive(session)
	defer r.removeLive(session)

	session.run(r.lobby)
}

func (r *Registry) addLive(s *Session) {
	r.liveMutex.Lock()
	defer r.liveMutex.Unlock()
	r.live[s] = struct{}{}
}

func (r *Registry) removeLive(s *Session) {
	r.liveMutex.Lock()
	defer r.liveMutex.Unlock()
	delete(r.live, s)
}
