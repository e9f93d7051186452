package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Core wires the registry, managers, and router together and dispatches
// inbound events to the handler owning each event's scope. Every entrypoint
// must be called from the same goroutine; each inbound event is processed
// to completion before the next begins, which is what lets the registries
// go lock-free.
type Core struct {
	registry   *ConnectionRegistry
	rooms      *RoomManager
	namespaces *NamespaceManager
	router     *BroadcastRouter
	handlers   map[EventName]handlerFunc
	validate   *validator.Validate
	now        func() time.Time
}

type handlerFunc func(connID string, env Envelope) error

// NewCore builds a core with the given declared namespaces, delivering
// outbound events through sender.
func NewCore(namespaces []string, sender Sender) *Core {
	registry := NewConnectionRegistry()
	router := NewBroadcastRouter(registry, sender)

	c := &Core{
		registry:   registry,
		rooms:      NewRoomManager(registry, router),
		namespaces: NewNamespaceManager(registry, router, namespaces),
		router:     router,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        time.Now,
	}
	c.handlers = map[EventName]handlerFunc{
		EventSendDirectMessage: c.handleDirectMessage,
		EventJoinRoom:          c.handleJoinRoom,
		EventRoomMessage:       c.handleRoomMessage,
		EventLeaveRoom:         c.handleLeaveRoom,
		EventBroadcastAll:      c.handleBroadcastAll,
		EventBroadcastOthers:   c.handleBroadcastOthers,
		EventJoinNamespace:     c.handleJoinNamespace,
		EventSendMessage:       c.handleSendMessage,
	}
	return c
}

// setClock overrides the clock on the core and both managers. Test hook.
func (c *Core) setClock(now func() time.Time) {
	c.now = now
	c.rooms.now = now
	c.namespaces.now = now
}

// HandleConnect registers a new connection with no scope.
func (c *Core) HandleConnect(connID string) error {
	_, err := c.registry.Register(connID)
	return err
}

// HandleDisconnect runs the full cleanup cascade: room leave, namespace
// removals, then registry removal. It is idempotent and never fails.
func (c *Core) HandleDisconnect(connID string) {
	c.rooms.Leave(connID)
	c.namespaces.Disconnect(connID)
	c.registry.Unregister(connID)
}

// HandleEvent decodes one inbound frame and dispatches it. Rejections are
// reported back to the originating connection only; a malformed frame from
// one connection never disturbs others' state. Frames from connections that
// are no longer registered are dropped.
func (c *Core) HandleEvent(connID string, raw []byte) {
	if _, err := c.registry.Lookup(connID); err != nil {
		return
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.reportError(connID, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	handler, ok := c.handlers[EventName(env.Event)]
	if !ok {
		c.reportError(connID, fmt.Errorf("%w: unknown event %q", ErrBadRequest, env.Event))
		return
	}
	if err := handler(connID, env); err != nil {
		c.reportError(connID, err)
	}
}

func (c *Core) reportError(connID string, err error) {
	c.router.Route(ToConnection(connID), EventError, ErrorPayload{
		Code:    errorCode(err),
		Message: err.Error(),
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateConnection):
		return "duplicate-connection"
	case errors.Is(err, ErrConnectionNotFound):
		return "not-found"
	case errors.Is(err, ErrUnknownNamespace):
		return "unknown-namespace"
	case errors.Is(err, ErrNotInRoom):
		return "not-in-room"
	case errors.Is(err, ErrNotInNamespace):
		return "not-in-namespace"
	case errors.Is(err, ErrAlreadyInRoom):
		return "already-in-room"
	default:
		return "bad-request"
	}
}

func decodePayload[T any](v *validator.Validate, data json.RawMessage) (T, error) {
	var payload T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return payload, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	}
	if err := v.Struct(&payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return payload, nil
}

func (c *Core) handleDirectMessage(connID string, env Envelope) error {
	p, err := decodePayload[DirectMessagePayload](c.validate, env.Data)
	if err != nil {
		return err
	}
	c.router.Route(ToConnection(connID), EventResponse, ResponsePayload{
		Text:        p.Text,
		YourMessage: true,
		Timestamp:   timestamp(c.now()),
	})
	return nil
}

func (c *Core) handleJoinRoom(connID string, env Envelope) error {
	p, err := decodePayload[JoinRoomPayload](c.validate, env.Data)
	if err != nil {
		return err
	}
	return c.rooms.Join(connID, p.RoomName, p.DisplayName)
}

func (c *Core) handleRoomMessage(connID string, env Envelope) error {
	p, err := decodePayload[RoomMessagePayload](c.validate, env.Data)
	if err != nil {
		return err
	}
	return c.rooms.Post(connID, p.Text)
}

func (c *Core) handleLeaveRoom(connID string, env Envelope) error {
	if _, err := decodePayload[LeaveRoomPayload](c.validate, env.Data); err != nil {
		return err
	}
	c.rooms.Leave(connID)
	return nil
}

func (c *Core) handleBroadcastAll(connID string, env Envelope) error {
	p, err := decodePayload[BroadcastPayload](c.validate, env.Data)
	if err != nil {
		return err
	}
	c.router.Route(ToAll(), EventBroadcastMessage, BroadcastMessagePayload{
		Text:      p.Text,
		SenderID:  connID,
		Timestamp: timestamp(c.now()),
	})
	return nil
}

func (c *Core) handleBroadcastOthers(connID string, env Envelope) error {
	p, err := decodePayload[BroadcastPayload](c.validate, env.Data)
	if err != nil {
		return err
	}
	c.router.Route(ToAllBut(connID), EventBroadcastMessage, BroadcastMessagePayload{
		Text:      p.Text,
		SenderID:  connID,
		Timestamp: timestamp(c.now()),
	})
	return nil
}

func (c *Core) handleJoinNamespace(connID string, env Envelope) error {
	p, err := decodePayload[JoinNamespacePayload](c.validate, env.Data)
	if err != nil {
		return err
	}
	if env.Namespace == "" {
		return fmt.Errorf("%w: join-namespace requires a namespace", ErrUnknownNamespace)
	}
	return c.namespaces.Join(connID, env.Namespace, p.DisplayName)
}

func (c *Core) handleSendMessage(connID string, env Envelope) error {
	p, err := decodePayload[SendMessagePayload](c.validate, env.Data)
	if err != nil {
		return err
	}
	if env.Namespace == "" {
		return fmt.Errorf("%w: send-message requires a namespace", ErrNotInNamespace)
	}
	return c.namespaces.Post(connID, env.Namespace, p.Text)
}

// Stats reports current registry and room counts.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	Namespaces  int `json:"namespaces"`
}

// CurrentStats returns a snapshot of the core's table sizes. Like every
// other entrypoint it must be called from the dispatch goroutine.
func (c *Core) CurrentStats() Stats {
	return Stats{
		Connections: c.registry.Len(),
		Rooms:       c.rooms.RoomCount(),
		Namespaces:  len(c.namespaces.spaces),
	}
}
