package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// delivery records one Sender.Deliver call.
type delivery struct {
	ConnID  string
	Event   EventName
	Payload any
}

// recordingSender captures every outbound delivery in order so tests can
// assert on fan-out targets, payloads, and ordering.
type recordingSender struct {
	deliveries []delivery
}

func (s *recordingSender) Deliver(connectionID string, event EventName, payload any) {
	s.deliveries = append(s.deliveries, delivery{ConnID: connectionID, Event: event, Payload: payload})
}

func (s *recordingSender) reset() {
	s.deliveries = nil
}

// byConn returns the deliveries addressed to id, in delivery order.
func (s *recordingSender) byConn(id string) []delivery {
	var out []delivery
	for _, d := range s.deliveries {
		if d.ConnID == id {
			out = append(out, d)
		}
	}
	return out
}

// targets returns the distinct connection ids that received event.
func (s *recordingSender) targets(event EventName) map[string]int {
	out := make(map[string]int)
	for _, d := range s.deliveries {
		if d.Event == event {
			out[d.ConnID]++
		}
	}
	return out
}

func testClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestCore(t *testing.T, namespaces ...string) (*Core, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	core := NewCore(namespaces, sender)
	core.setClock(testClock)
	return core, sender
}

func connect(t *testing.T, core *Core, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, core.HandleConnect(id))
	}
}
