// Package server implements the WebSocket transport and HTTP surface for
// roomcast.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, and HTTP handlers. The hub serializes
// all inbound traffic onto a single dispatch goroutine that drives the chat
// core in internal/chat; everything else here is transport framing,
// heartbeats, and access control at the edge.
package server
