package chat

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
)

// Room is an ephemeral group of connections. It is created lazily on the
// first join and deleted atomically when the last member leaves; a room
// with zero members never exists.
type Room struct {
	Name    string
	members map[string]string // connection id -> display name
	history []Message
	nextID  uint64
}

func newRoom(name string) *Room {
	return &Room{Name: name, members: make(map[string]string)}
}

// MemberCount returns the number of current members.
func (r *Room) MemberCount() int {
	return len(r.members)
}

func (r *Room) memberNames() []string {
	return sortedNames(r.members)
}

func (r *Room) historySnapshot() []Message {
	return append([]Message{}, r.history...)
}

func (r *Room) appendMessage(senderID, senderName, text string, at time.Time) Message {
	r.nextID++
	msg := Message{
		ID:                r.nextID,
		SenderID:          senderID,
		SenderDisplayName: senderName,
		Text:              text,
		Timestamp:         timestamp(at),
	}
	r.history = append(r.history, msg)
	return msg
}

func sortedNames(members map[string]string) []string {
	names := lo.Values(members)
	sort.Strings(names)
	return names
}

// RoomManager owns the room table and the room-scoped operations. It must
// only be driven from the single dispatch goroutine.
type RoomManager struct {
	registry *ConnectionRegistry
	router   *BroadcastRouter
	rooms    map[string]*Room
	now      func() time.Time
}

// NewRoomManager returns a manager with no rooms and binds room membership
// resolution into the router.
func NewRoomManager(registry *ConnectionRegistry, router *BroadcastRouter) *RoomManager {
	m := &RoomManager{
		registry: registry,
		router:   router,
		rooms:    make(map[string]*Room),
		now:      time.Now,
	}
	router.roomMembers = m.memberIDs
	return m
}

func (m *RoomManager) memberIDs(name string) []string {
	room, ok := m.rooms[name]
	if !ok {
		return nil
	}
	return lo.Keys(room.members)
}

// Room returns the named room if it exists.
func (m *RoomManager) Room(name string) (*Room, bool) {
	room, ok := m.rooms[name]
	return room, ok
}

// RoomCount returns the number of live rooms.
func (m *RoomManager) RoomCount() int {
	return len(m.rooms)
}

// Join adds the connection to roomName, creating the room if absent. The
// joiner receives a joined-room snapshot; the room's other members receive
// member-joined with the updated member list. A connection that already has
// a room scope is rejected with ErrAlreadyInRoom.
func (m *RoomManager) Join(connID, roomName, displayName string) error {
	conn, err := m.registry.Lookup(connID)
	if err != nil {
		return err
	}
	if conn.Room != "" {
		return fmt.Errorf("%w: currently in %q", ErrAlreadyInRoom, conn.Room)
	}

	room, ok := m.rooms[roomName]
	if !ok {
		room = newRoom(roomName)
		m.rooms[roomName] = room
	}
	room.members[connID] = displayName
	conn.Room = roomName

	m.router.Route(ToConnection(connID), EventJoinedRoom, JoinedRoomPayload{
		RoomName:       roomName,
		Members:        room.memberNames(),
		MessageHistory: room.historySnapshot(),
	})
	m.router.Route(ToRoomBut(roomName, connID), EventMemberJoined, MemberJoinedPayload{
		DisplayName: displayName,
		Members:     room.memberNames(),
	})
	return nil
}

// Leave removes the connection from its current room. It is idempotent: a
// connection with no room scope, or whose room is gone, is a no-op. The
// remaining members receive member-left; a room emptied by the departure is
// deleted within the same call.
func (m *RoomManager) Leave(connID string) {
	conn, err := m.registry.Lookup(connID)
	if err != nil {
		return
	}
	roomName := conn.Room
	if roomName == "" {
		return
	}
	conn.Room = ""

	room, ok := m.rooms[roomName]
	if !ok {
		return
	}
	delete(room.members, connID)
	if len(room.members) == 0 {
		delete(m.rooms, roomName)
		return
	}
	m.router.Route(ToRoom(roomName), EventMemberLeft, MemberLeftPayload{
		Members: room.memberNames(),
	})
}

// Post appends a message to the connection's current room and fans it out
// to every member, the sender included, so the sender's view reflects the
// server-confirmed message.
func (m *RoomManager) Post(connID, text string) error {
	conn, err := m.registry.Lookup(connID)
	if err != nil {
		return err
	}
	if conn.Room == "" {
		return ErrNotInRoom
	}
	room, ok := m.rooms[conn.Room]
	if !ok {
		conn.Room = ""
		return ErrNotInRoom
	}

	msg := room.appendMessage(connID, room.members[connID], text, m.now())
	m.router.Route(ToRoom(conn.Room), EventRoomMessage, msg)
	return nil
}
