// Package chat defines the sentinel errors reported back to the connection
// that triggered a rejected operation.
package chat

import "errors"

var (
	// ErrDuplicateConnection is returned when a connection id is registered twice.
	ErrDuplicateConnection = errors.New("connection id already registered")

	// ErrConnectionNotFound is returned when an operation references an unknown connection id.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrUnknownNamespace is returned when a namespace name is not in the declared set.
	ErrUnknownNamespace = errors.New("unknown namespace")

	// ErrNotInRoom is returned when a room operation comes from a connection with no room scope.
	ErrNotInRoom = errors.New("connection is not in a room")

	// ErrNotInNamespace is returned when a namespace operation comes from a non-member.
	ErrNotInNamespace = errors.New("connection is not in the namespace")

	// ErrAlreadyInRoom is returned when a connection joins a room while still in another.
	ErrAlreadyInRoom = errors.New("connection is already in a room")

	// ErrBadRequest is returned for malformed envelopes, unknown event names,
	// and payloads that fail validation.
	ErrBadRequest = errors.New("malformed event")
)
