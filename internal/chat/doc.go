// Package chat implements the core of the roomcast server: the connection
// registry, room and namespace managers, and the broadcast router that
// decides, for every inbound event, which live connections receive which
// outbound event.
//
// The package is a pure state machine. It performs no I/O and holds no
// locks; every entrypoint on Core must be called from a single goroutine
// and runs to completion before the next inbound event is processed.
// Delivery to the transport goes through the Sender interface, which keeps
// the core unit-testable without a live connection.
package chat
