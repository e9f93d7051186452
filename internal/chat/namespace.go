package chat

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Namespace is a pre-declared, process-lifetime group. Unlike rooms,
// namespaces are never deleted when empty; their history survives until the
// process exits. A connection may be a member of several namespaces at once.
type Namespace struct {
	Name    string
	members map[string]string // connection id -> display name
	history []Message
	nextID  uint64
}

func newNamespace(name string) *Namespace {
	return &Namespace{Name: name, members: make(map[string]string)}
}

// MemberCount returns the number of current members.
func (n *Namespace) MemberCount() int {
	return len(n.members)
}

func (n *Namespace) memberNames() []string {
	return sortedNames(n.members)
}

func (n *Namespace) historySnapshot() []Message {
	return append([]Message{}, n.history...)
}

func (n *Namespace) appendMessage(senderID, senderName, text string, at time.Time) Message {
	n.nextID++
	msg := Message{
		ID:                n.nextID,
		SenderID:          senderID,
		SenderDisplayName: senderName,
		Text:              text,
		Timestamp:         timestamp(at),
	}
	n.history = append(n.history, msg)
	return msg
}

// NamespaceManager owns the declared namespace singletons and the
// namespace-scoped operations. Like RoomManager it must only be driven from
// the single dispatch goroutine.
type NamespaceManager struct {
	registry *ConnectionRegistry
	router   *BroadcastRouter
	spaces   map[string]*Namespace
	now      func() time.Time
}

// NewNamespaceManager declares the fixed namespace set up front and binds
// namespace membership resolution into the router.
func NewNamespaceManager(registry *ConnectionRegistry, router *BroadcastRouter, names []string) *NamespaceManager {
	m := &NamespaceManager{
		registry: registry,
		router:   router,
		spaces:   make(map[string]*Namespace, len(names)),
		now:      time.Now,
	}
	for _, name := range names {
		m.spaces[name] = newNamespace(name)
	}
	router.namespaceMembers = m.memberIDs
	return m
}

func (m *NamespaceManager) memberIDs(name string) []string {
	ns, ok := m.spaces[name]
	if !ok {
		return nil
	}
	return lo.Keys(ns.members)
}

// Namespace returns the named namespace if it is declared.
func (m *NamespaceManager) Namespace(name string) (*Namespace, bool) {
	ns, ok := m.spaces[name]
	return ns, ok
}

// Names returns the declared namespace names.
func (m *NamespaceManager) Names() []string {
	return lo.Keys(m.spaces)
}

// Join adds the connection to the named namespace. The joiner receives the
// initial-state snapshot before the member-joined broadcast goes out to
// every member, the joiner included.
func (m *NamespaceManager) Join(connID, name, displayName string) error {
	if _, err := m.registry.Lookup(connID); err != nil {
		return err
	}
	ns, ok := m.spaces[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}

	ns.members[connID] = displayName

	m.router.Route(ToConnection(connID), EventInitialState, InitialStatePayload{
		Namespace:      name,
		Members:        ns.memberNames(),
		MessageHistory: ns.historySnapshot(),
	})
	m.router.Route(ToNamespace(name), EventMemberJoined, MemberJoinedPayload{
		DisplayName: displayName,
		Members:     ns.memberNames(),
	})
	return nil
}

// Post appends a message to the named namespace and fans it out to every
// member. Non-members are rejected with ErrNotInNamespace.
func (m *NamespaceManager) Post(connID, name, text string) error {
	if _, err := m.registry.Lookup(connID); err != nil {
		return err
	}
	ns, ok := m.spaces[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}
	displayName, member := ns.members[connID]
	if !member {
		return fmt.Errorf("%w: %q", ErrNotInNamespace, name)
	}

	msg := ns.appendMessage(connID, displayName, text, m.now())
	m.router.Route(ToNamespace(name), EventNamespaceMessage, NamespaceMessagePayload{
		Namespace: name,
		Message:   msg,
	})
	return nil
}

// Disconnect removes the connection from every namespace it joined and
// notifies the remaining members. The namespaces themselves persist.
func (m *NamespaceManager) Disconnect(connID string) {
	for _, ns := range m.spaces {
		if _, ok := ns.members[connID]; !ok {
			continue
		}
		delete(ns.members, connID)
		m.router.Route(ToNamespace(ns.Name), EventMemberLeft, MemberLeftPayload{
			Members: ns.memberNames(),
		})
	}
}
