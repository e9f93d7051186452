// Package chat defines the named events exchanged with clients and the
// typed payloads they carry on the wire.
package chat

import "encoding/json"

// EventName identifies a named event on the wire.
type EventName string

// Inbound events.
const (
	EventSendDirectMessage EventName = "send-direct-message"
	EventJoinRoom          EventName = "join-room"
	EventRoomMessage       EventName = "room-message" // inbound and outbound
	EventLeaveRoom         EventName = "leave-room"
	EventBroadcastAll      EventName = "broadcast-all"
	EventBroadcastOthers   EventName = "broadcast-others"
	EventJoinNamespace     EventName = "join-namespace"
	EventSendMessage       EventName = "send-message"
)

// Outbound events.
const (
	EventResponse         EventName = "response"
	EventJoinedRoom       EventName = "joined-room"
	EventMemberJoined     EventName = "member-joined"
	EventMemberLeft       EventName = "member-left"
	EventBroadcastMessage EventName = "broadcast-message"
	EventInitialState     EventName = "initial-state"
	EventNamespaceMessage EventName = "namespace-message"
	EventError            EventName = "error"
)

// Envelope is the frame every inbound message arrives in. Namespace-scoped
// events carry the namespace discriminator in the envelope so a single
// connection can address any declared namespace.
type Envelope struct {
	Event     string          `json:"event"`
	Namespace string          `json:"namespace,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads. Validation tags reject empty or oversized fields before
// any state is touched.

// DirectMessagePayload carries a send-direct-message request.
type DirectMessagePayload struct {
	Text string `json:"text" validate:"required,max=2048"`
}

// JoinRoomPayload carries a join-room request.
type JoinRoomPayload struct {
	RoomName    string `json:"roomName" validate:"required,max=64"`
	DisplayName string `json:"displayName" validate:"required,max=64"`
}

// RoomMessagePayload carries an inbound room-message request.
type RoomMessagePayload struct {
	Text string `json:"text" validate:"required,max=2048"`
}

// LeaveRoomPayload carries a leave-room request. It has no fields.
type LeaveRoomPayload struct{}

// BroadcastPayload carries a broadcast-all or broadcast-others request.
type BroadcastPayload struct {
	Text string `json:"text" validate:"required,max=2048"`
}

// JoinNamespacePayload carries a join-namespace request; the namespace name
// travels in the envelope.
type JoinNamespacePayload struct {
	DisplayName string `json:"displayName" validate:"required,max=64"`
}

// SendMessagePayload carries a namespace-scoped send-message request.
type SendMessagePayload struct {
	Text string `json:"text" validate:"required,max=2048"`
}

// Outbound payloads.

// ResponsePayload echoes a direct message back to its sender.
type ResponsePayload struct {
	Text        string `json:"text"`
	YourMessage bool   `json:"yourMessage"`
	Timestamp   string `json:"timestamp"`
}

// JoinedRoomPayload is the snapshot sent to a connection that joined a room.
type JoinedRoomPayload struct {
	RoomName       string    `json:"roomName"`
	Members        []string  `json:"members"`
	MessageHistory []Message `json:"messageHistory"`
}

// MemberJoinedPayload announces a new member with the updated member list.
type MemberJoinedPayload struct {
	DisplayName string   `json:"displayName"`
	Members     []string `json:"members"`
}

// MemberLeftPayload carries the member list remaining after a departure.
type MemberLeftPayload struct {
	Members []string `json:"members"`
}

// BroadcastMessagePayload is fanned out for broadcast-all and broadcast-others.
type BroadcastMessagePayload struct {
	Text      string `json:"text"`
	SenderID  string `json:"senderId"`
	Timestamp string `json:"timestamp"`
}

// InitialStatePayload is the snapshot sent to a connection that joined a
// namespace, before any broadcast for the same join is emitted.
type InitialStatePayload struct {
	Namespace      string    `json:"namespace"`
	Members        []string  `json:"members"`
	MessageHistory []Message `json:"messageHistory"`
}

// NamespaceMessagePayload is a message fanned out to a namespace.
type NamespaceMessagePayload struct {
	Namespace string `json:"namespace"`
	Message
}

// ErrorPayload reports a rejected operation to the originating connection only.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
