package chat

import "fmt"

// Connection is a live transport connection known to the core. The registry
// owns the record; rooms and namespaces hold only the id. Room is the name
// of the connection's current room, or the empty string when it has none.
// Namespace memberships and display names are tracked per scope, not here.
type Connection struct {
	ID   string
	Room string
}

// ConnectionRegistry is the single source of truth for which connections
// exist. All room and namespace membership is derived state reconciled
// against it on disconnect.
type ConnectionRegistry struct {
	conns map[string]*Connection
}

// NewConnectionRegistry returns an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{conns: make(map[string]*Connection)}
}

// Register creates a Connection with no scope. It fails with
// ErrDuplicateConnection if the id is already registered.
func (r *ConnectionRegistry) Register(id string) (*Connection, error) {
	if _, exists := r.conns[id]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateConnection, id)
	}
	conn := &Connection{ID: id}
	r.conns[id] = conn
	return conn, nil
}

// Unregister removes the connection record. It is a no-op if the id is
// unknown; scope cleanup is the caller's responsibility and must happen
// before the record disappears.
func (r *ConnectionRegistry) Unregister(id string) {
	delete(r.conns, id)
}

// Lookup returns the connection for id, or ErrConnectionNotFound.
func (r *ConnectionRegistry) Lookup(id string) (*Connection, error) {
	conn, ok := r.conns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConnectionNotFound, id)
	}
	return conn, nil
}

// IDs returns the ids of every registered connection.
func (r *ConnectionRegistry) IDs() []string {
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of registered connections.
func (r *ConnectionRegistry) Len() int {
	return len(r.conns)
}
