// Package server implements rooms: named groups of sessions that receive each
// other's broadcasts.
package server

import (
	"log"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/protocol"
)

// Room is a named group of sessions. It owns broadcast fan-out and membership
// change notifications. Membership is non-owning: a Room never keeps a session
// alive, and a session's teardown removes it from its room explicitly.
type Room struct {
	name string

	mutex   sync.RWMutex
	members map[*Session]struct{}
}

// NewRoom creates an empty room with the given name. Registration under that
// name is the registry's concern.
func NewRoom(name string) *Room {
	return &Room{
		name:    name,
		members: make(map[*Session]struct{}),
	}
}

// Name returns the room's unique, user-visible name.
func (r *Room) Name() string {
	return r.name
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.members)
}

// Join adds the session to the room, then announces "joined room" to every
// current member, the newcomer included. The membership add happens before the
// broadcast starts, so the joining user receives its own join notice.
func (r *Room) Join(s *Session) {
	r.mutex.Lock()
	r.members[s] = struct{}{}
	memberCount := len(r.members)
	r.mutex.Unlock()

	log.Printf("User %s joined room %q. Members: %d", s.ID(), r.name, memberCount)
	r.broadcastStatus(s, "joined room")
}

// Leave announces "left room" to the members present before removal, so the
// leaving user still receives the notice if its connection is alive, then
// removes the session.
func (r *Room) Leave(s *Session) {
	r.broadcastStatus(s, "left room")

	r.mutex.Lock()
	delete(r.members, s)
	memberCount := len(r.members)
	r.mutex.Unlock()

	log.Printf("User %s left room %q. Members: %d", s.ID(), r.name, memberCount)
}

// BroadcastMessage delivers a chat message from sender to every current
// member, the sender included.
func (r *Room) BroadcastMessage(sender *Session, text string) {
	r.broadcast(protocol.Message{
		TimestampMs: timestampMillis(),
		UserID:      sender.ID(),
		UserName:    sender.Name(),
		Text:        text,
	})
}

// NotifyRename announces a member's name change to every current member.
func (r *Room) NotifyRename(s *Session, oldName string) {
	r.broadcastStatus(s, "changed name from "+oldName+" to "+s.Name())
}

func (r *Room) broadcastStatus(about *Session, statusMessage string) {
	r.broadcast(protocol.Status{
		TimestampMs:   timestampMillis(),
		UserID:        about.ID(),
		UserName:      about.Name(),
		StatusMessage: statusMessage,
	})
}

// broadcast encodes the event once and delivers it to a snapshot of the
// membership, so concurrent joins and leaves cannot corrupt the iteration.
// A failed delivery is logged and closes only the failing member's session;
// fan-out continues for the rest.
func (r *Room) broadcast(evt protocol.Event) {
	payload, err := protocol.Encode(evt)
	if err != nil {
		log.Printf("Dropping broadcast in room %q: %v", r.name, err)
		return
	}

	for _, member := range r.memberSnapshot() {
		if err := member.enqueue(payload); err != nil {
			log.Printf("Broadcast in room %q: %v", r.name, err)
			member.close()
		}
	}
}

// memberSnapshot returns a point-in-time copy of the membership set.
func (r *Room) memberSnapshot() []*Session {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	members := make([]*Session, 0, len(r.members))
	for member := range r.members {
		members = append(members, member)
	}
	return members
}

func timestampMillis() int64 {
	return time.Now().UnixMilli()
}
