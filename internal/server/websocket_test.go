package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/seanmck/roomcast/internal/chat"
	"github.com/seanmck/roomcast/internal/server"
)

// frame mirrors the outbound JSON envelope written by the hub.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsClient wraps a dialed connection. The write pump batches queued frames
// into one text message separated by newlines, so reads split on '\n' and
// queue the remainder.
type wsClient struct {
	t      *testing.T
	conn   *websocket.Conn
	queued []frame
}

func (c *wsClient) send(raw string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (c *wsClient) next() frame {
	c.t.Helper()
	if len(c.queued) == 0 {
		require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		for _, part := range bytes.Split(data, []byte{'\n'}) {
			if len(part) == 0 {
				continue
			}
			var f frame
			require.NoError(c.t, json.Unmarshal(part, &f))
			c.queued = append(c.queued, f)
		}
	}
	require.NotEmpty(c.t, c.queued)
	f := c.queued[0]
	c.queued = c.queued[1:]
	return f
}

// expect reads the next frame and asserts its event name, decoding the data
// into out when non-nil.
func (c *wsClient) expect(event string, out any) frame {
	c.t.Helper()
	f := c.next()
	require.Equal(c.t, event, f.Event)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(f.Data, out))
	}
	return f
}

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}

	hub := server.NewHub()
	core := chat.NewCore(cfg.Namespaces, hub)
	hub.Bind(core)
	go hub.Run()
	t.Cleanup(func() {
		_ = hub.Shutdown(2 * time.Second)
	})

	ts := httptest.NewServer(server.SetupRoutes(hub, cfg))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return ts, wsURL
}

func dial(t *testing.T, wsURL, origin string) *wsClient {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", origin)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	require.NoError(t, resp.Body.Close())
	return &wsClient{t: t, conn: conn}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "running")
}

func TestWebSocketRejectsNonGetRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/ws", "text/plain", strings.NewReader("nope"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRoomFlowOverWebSocket(t *testing.T) {
	req := require.New(t)
	ts, wsURL := newTestServer(t)

	alice := dial(t, wsURL, ts.URL)
	alice.send(`{"event":"join-room","data":{"roomName":"lobby","displayName":"Alice"}}`)
	var joined chat.JoinedRoomPayload
	alice.expect("joined-room", &joined)
	req.Equal("lobby", joined.RoomName)
	req.Equal([]string{"Alice"}, joined.Members)
	req.Empty(joined.MessageHistory)

	bob := dial(t, wsURL, ts.URL)
	bob.send(`{"event":"join-room","data":{"roomName":"lobby","displayName":"Bob"}}`)
	bob.expect("joined-room", &joined)
	req.Equal([]string{"Alice", "Bob"}, joined.Members)

	var memberJoined chat.MemberJoinedPayload
	alice.expect("member-joined", &memberJoined)
	req.Equal("Bob", memberJoined.DisplayName)
	req.Equal([]string{"Alice", "Bob"}, memberJoined.Members)

	bob.send(`{"event":"room-message","data":{"text":"hi"}}`)
	var msg chat.Message
	alice.expect("room-message", &msg)
	req.Equal(uint64(1), msg.ID)
	req.Equal("Bob", msg.SenderDisplayName)
	req.Equal("hi", msg.Text)
	bob.expect("room-message", &msg)
	req.Equal("hi", msg.Text)

	alice.send(`{"event":"leave-room"}`)
	var left chat.MemberLeftPayload
	bob.expect("member-left", &left)
	req.Equal([]string{"Bob"}, left.Members)
}

func TestNamespaceFlowOverWebSocket(t *testing.T) {
	req := require.New(t)
	ts, wsURL := newTestServer(t)

	alice := dial(t, wsURL, ts.URL)
	alice.send(`{"event":"join-namespace","namespace":"general","data":{"displayName":"Alice"}}`)

	var state chat.InitialStatePayload
	alice.expect("initial-state", &state)
	req.Equal("general", state.Namespace)
	req.Equal([]string{"Alice"}, state.Members)
	req.Empty(state.MessageHistory)

	var joined chat.MemberJoinedPayload
	alice.expect("member-joined", &joined)
	req.Equal("Alice", joined.DisplayName)

	alice.send(`{"event":"send-message","namespace":"general","data":{"text":"hello"}}`)
	var msg chat.NamespaceMessagePayload
	alice.expect("namespace-message", &msg)
	req.Equal("general", msg.Namespace)
	req.Equal(uint64(1), msg.ID)
	req.Equal("hello", msg.Text)
}

func TestMalformedFrameReturnsError(t *testing.T) {
	req := require.New(t)
	ts, wsURL := newTestServer(t)

	client := dial(t, wsURL, ts.URL)
	client.send(`this is not json`)

	var errPayload chat.ErrorPayload
	client.expect("error", &errPayload)
	req.Equal("bad-request", errPayload.Code)
}

func TestStatsEndpointReportsCoreCounts(t *testing.T) {
	req := require.New(t)
	ts, wsURL := newTestServer(t)

	client := dial(t, wsURL, ts.URL)
	client.send(`{"event":"join-room","data":{"roomName":"lobby","displayName":"Alice"}}`)
	client.expect("joined-room", nil)

	resp, err := http.Get(ts.URL + "/stats")
	req.NoError(err)
	defer func() { _ = resp.Body.Close() }()

	var stats map[string]int
	req.NoError(json.NewDecoder(resp.Body).Decode(&stats))
	req.Equal(1, stats["clients"])
	req.Equal(1, stats["connections"])
	req.Equal(1, stats["rooms"])
	req.Equal(len(server.NewConfig().Namespaces), stats["namespaces"])
}
