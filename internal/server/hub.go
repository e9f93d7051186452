// Package server coordinates client registration, inbound event dispatch,
// and connection cleanup for the roomcast WebSocket transport via the Hub
// type.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/seanmck/roomcast/internal/chat"
)

// outboundFrame is the JSON envelope written to clients.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// inboundFrame is one raw message read from a client, queued for the hub's
// dispatch loop.
type inboundFrame struct {
	connectionID string
	payload      []byte
}

// Hub owns all WebSocket client connections and drives the chat core from a
// single goroutine. Registration, disconnection, and inbound frames are all
// serialized through the Run loop, so every core operation runs to
// completion before the next one starts.
type Hub struct {
	core       *chat.Core
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	statsReq   chan chan chat.Stats
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub with no clients. Bind must be called with the chat
// core before Run.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame),
		statsReq:   make(chan chan chat.Stats),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Bind attaches the chat core the hub dispatches into. The hub doubles as
// the core's Sender, so construction is two-phase: NewHub, then
// chat.NewCore with the hub, then Bind.
func (h *Hub) Bind(core *chat.Core) {
	h.core = core
}

// Deliver implements chat.Sender. It marshals one outbound event and queues
// it on the target client's send channel. A client whose buffer is full is
// disconnected; its cleanup then flows through the normal unregister path.
func (h *Hub) Deliver(connectionID string, event chat.EventName, payload any) {
	frame, err := json.Marshal(outboundFrame{Event: string(event), Data: payload})
	if err != nil {
		slog.Error("failed to marshal outbound event", "event", event, "error", err)
		return
	}

	h.mutex.RLock()
	client := h.clients[connectionID]
	h.mutex.RUnlock()
	if client == nil {
		return
	}

	if !h.safeSend(client, frame) {
		slog.Warn("send buffer full, dropping client", "connectionId", connectionID)
		client.closeConnection()
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send so the channel cannot be closed
	// out from under us by an unregister.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client.id]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration,
// disconnection, and inbound event dispatch. It should be called in its own
// goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				slog.Warn("received nil client registration; skipping")
				continue
			}
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case frame := <-h.inbound:
			h.core.HandleEvent(frame.connectionID, frame.payload)

		case reply := <-h.statsReq:
			reply <- h.core.CurrentStats()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	if err := h.core.HandleConnect(client.id); err != nil {
		slog.Warn("rejecting connection", "connectionId", client.id, "error", err)
		h.mutex.Lock()
		delete(h.clients, client.id)
		client.closed = true
		h.mutex.Unlock()
		close(client.send)
		client.closeConnection()
		return
	}

	slog.Info("client connected", "connectionId", client.id, "addr", client.addr, "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	h.core.HandleDisconnect(client.id)
	slog.Info("client disconnected", "connectionId", client.id, "addr", client.addr, "clients", clientCount)
}

// Stats returns a snapshot of the core's scope counts. The request is
// serialized through the Run loop, so it observes a consistent state between
// event dispatches. After shutdown it reports zero counts.
func (h *Hub) Stats() chat.Stats {
	reply := make(chan chat.Stats, 1)
	select {
	case h.statsReq <- reply:
		return <-reply
	case <-h.ctx.Done():
		return chat.Stats{}
	}
}

// ClientCount returns the number of connected transport clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	slog.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				slog.Warn("error closing client connection", "addr", client.addr, "error", err)
			}
		}
	}

	slog.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
