package chat

// Sender delivers one outbound event to one connection. The transport layer
// implements it; delivery is fire-and-forget from the core's perspective.
type Sender interface {
	Deliver(connectionID string, event EventName, payload any)
}

// ScopeKind selects the audience of a broadcast.
type ScopeKind uint8

const (
	// ScopeConnection targets a single connection.
	ScopeConnection ScopeKind = iota
	// ScopeAll targets every registered connection.
	ScopeAll
	// ScopeAllButSender targets every registered connection except the sender.
	ScopeAllButSender
	// ScopeRoom targets all current members of a room.
	ScopeRoom
	// ScopeRoomButSender targets a room's members except the sender.
	ScopeRoomButSender
	// ScopeNamespace targets all current members of a namespace.
	ScopeNamespace
)

// Scope is a broadcast audience selector. Name holds the room or namespace
// name, or the target connection id for ScopeConnection. Sender is the
// originating connection excluded by the but-sender kinds.
type Scope struct {
	Kind   ScopeKind
	Name   string
	Sender string
}

// ToConnection targets a single connection id.
func ToConnection(id string) Scope { return Scope{Kind: ScopeConnection, Name: id} }

// ToAll targets every registered connection.
func ToAll() Scope { return Scope{Kind: ScopeAll} }

// ToAllBut targets every registered connection except senderID.
func ToAllBut(senderID string) Scope { return Scope{Kind: ScopeAllButSender, Sender: senderID} }

// ToRoom targets all members of the named room.
func ToRoom(name string) Scope { return Scope{Kind: ScopeRoom, Name: name} }

// ToRoomBut targets the named room's members except senderID.
func ToRoomBut(name, senderID string) Scope {
	return Scope{Kind: ScopeRoomButSender, Name: name, Sender: senderID}
}

// ToNamespace targets all members of the named namespace.
func ToNamespace(name string) Scope { return Scope{Kind: ScopeNamespace, Name: name} }

// BroadcastRouter resolves a scope selector into a concrete, deduplicated
// set of connection ids and delivers the event to each exactly once.
// Resolution runs against the membership state at the instant of the call.
type BroadcastRouter struct {
	registry *ConnectionRegistry
	sender   Sender

	// Bound by the managers that own the membership tables.
	roomMembers      func(room string) []string
	namespaceMembers func(namespace string) []string
}

// NewBroadcastRouter returns a router over the given registry. Room and
// namespace resolution is bound by the respective managers at construction.
func NewBroadcastRouter(registry *ConnectionRegistry, sender Sender) *BroadcastRouter {
	return &BroadcastRouter{registry: registry, sender: sender}
}

// Route delivers event with payload to every connection the scope resolves to.
func (r *BroadcastRouter) Route(scope Scope, event EventName, payload any) {
	for id := range r.resolve(scope) {
		r.sender.Deliver(id, event, payload)
	}
}

func (r *BroadcastRouter) resolve(scope Scope) map[string]struct{} {
	targets := make(map[string]struct{})

	switch scope.Kind {
	case ScopeConnection:
		if _, err := r.registry.Lookup(scope.Name); err == nil {
			targets[scope.Name] = struct{}{}
		}
	case ScopeAll, ScopeAllButSender:
		for _, id := range r.registry.IDs() {
			targets[id] = struct{}{}
		}
	case ScopeRoom, ScopeRoomButSender:
		if r.roomMembers != nil {
			for _, id := range r.roomMembers(scope.Name) {
				targets[id] = struct{}{}
			}
		}
	case ScopeNamespace:
		if r.namespaceMembers != nil {
			for _, id := range r.namespaceMembers(scope.Name) {
				targets[id] = struct{}{}
			}
		}
	}

	if scope.Kind == ScopeAllButSender || scope.Kind == ScopeRoomButSender {
		delete(targets, scope.Sender)
	}
	return targets
}
