package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinUnknownNamespaceRejected(t *testing.T) {
	req := require.New(t)
	core, sender := newTestCore(t, "general")
	connect(t, core, "conn-a")
	sender.reset()

	err := core.namespaces.Join("conn-a", "nope", "Alice")
	req.ErrorIs(err, ErrUnknownNamespace)
	req.Empty(sender.deliveries)
}

func TestJoinNamespaceSnapshotPrecedesBroadcast(t *testing.T) {
	req := require.New(t)
	core, sender := newTestCore(t, "general")
	connect(t, core, "conn-a")

	req.NoError(core.namespaces.Join("conn-a", "general", "Alice"))

	// The joiner gets the snapshot first, then the member-joined broadcast
	// that goes to every member including the joiner.
	deliveries := sender.byConn("conn-a")
	req.Len(deliveries, 2)
	req.Equal(EventInitialState, deliveries[0].Event)
	req.Equal(EventMemberJoined, deliveries[1].Event)

	state := deliveries[0].Payload.(InitialStatePayload)
	req.Equal("general", state.Namespace)
	req.Equal([]string{"Alice"}, state.Members)
	req.NotNil(state.MessageHistory)
	req.Empty(state.MessageHistory)

	joined := deliveries[1].Payload.(MemberJoinedPayload)
	req.Equal("Alice", joined.DisplayName)
	req.Equal([]string{"Alice"}, joined.Members)
}

func TestNamespaceHistoryReplayedToNewJoiner(t *testing.T) {
	req := require.New(t)
	core, sender := newTestCore(t, "general")
	connect(t, core, "conn-a", "conn-b")
	req.NoError(core.namespaces.Join("conn-a", "general", "Alice"))
	req.NoError(core.namespaces.Post("conn-a", "general", "one"))
	req.NoError(core.namespaces.Post("conn-a", "general", "two"))
	sender.reset()

	req.NoError(core.namespaces.Join("conn-b", "general", "Bob"))

	deliveries := sender.byConn("conn-b")
	req.Len(deliveries, 2)
	state := deliveries[0].Payload.(InitialStatePayload)
	req.Equal([]string{"Alice", "Bob"}, state.Members)
	req.Len(state.MessageHistory, 2)
	req.Equal(uint64(1), state.MessageHistory[0].ID)
	req.Equal("one", state.MessageHistory[0].Text)
	req.Equal(uint64(2), state.MessageHistory[1].ID)
	req.Equal("two", state.MessageHistory[1].Text)

	// Existing members see the member-joined broadcast too.
	otherDeliveries := sender.byConn("conn-a")
	req.Len(otherDeliveries, 1)
	req.Equal(EventMemberJoined, otherDeliveries[0].Event)
}

func TestNamespaceMessageFansOutToMembers(t *testing.T) {
	req := require.New(t)
	core, sender := newTestCore(t, "general")
	connect(t, core, "conn-a", "conn-b", "conn-c")
	req.NoError(core.namespaces.Join("conn-a", "general", "Alice"))
	req.NoError(core.namespaces.Join("conn-b", "general", "Bob"))
	sender.reset()

	req.NoError(core.namespaces.Post("conn-b", "general", "hello"))

	for _, id := range []string{"conn-a", "conn-b"} {
		deliveries := sender.byConn(id)
		req.Len(deliveries, 1, "member %s", id)
		req.Equal(EventNamespaceMessage, deliveries[0].Event)
		msg := deliveries[0].Payload.(NamespaceMessagePayload)
		req.Equal("general", msg.Namespace)
		req.Equal(uint64(1), msg.ID)
		req.Equal("Bob", msg.SenderDisplayName)
		req.Equal("hello", msg.Text)
	}
	// Connected non-members receive nothing.
	req.Empty(sender.byConn("conn-c"))
}

func TestPostWithoutMembershipRejected(t *testing.T) {
	req := require.New(t)
	core, sender := newTestCore(t, "general")
	connect(t, core, "conn-a")
	sender.reset()

	err := core.namespaces.Post("conn-a", "general", "hello")
	req.ErrorIs(err, ErrNotInNamespace)
	req.Empty(sender.deliveries)

	ns, ok := core.namespaces.Namespace("general")
	req.True(ok)
	req.Empty(ns.history)
}

func TestPostToUnknownNamespaceRejected(t *testing.T) {
	core, _ := newTestCore(t, "general")
	connect(t, core, "conn-a")

	err := core.namespaces.Post("conn-a", "nope", "hello")
	require.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestConnectionMayJoinSeveralNamespaces(t *testing.T) {
	req := require.New(t)
	core, _ := newTestCore(t, "general", "tech")
	connect(t, core, "conn-a")

	req.NoError(core.namespaces.Join("conn-a", "general", "Alice"))
	req.NoError(core.namespaces.Join("conn-a", "tech", "Alice"))

	req.NoError(core.namespaces.Post("conn-a", "general", "in general"))
	req.NoError(core.namespaces.Post("conn-a", "tech", "in tech"))

	// Histories and id counters are independent per namespace.
	general, _ := core.namespaces.Namespace("general")
	tech, _ := core.namespaces.Namespace("tech")
	req.Len(general.history, 1)
	req.Len(tech.history, 1)
	req.Equal(uint64(1), general.history[0].ID)
	req.Equal(uint64(1), tech.history[0].ID)
}

func TestNamespaceSurvivesWhenEmpty(t *testing.T) {
	req := require.New(t)
	core, _ := newTestCore(t, "general")
	connect(t, core, "conn-a")
	req.NoError(core.namespaces.Join("conn-a", "general", "Alice"))
	req.NoError(core.namespaces.Post("conn-a", "general", "still here"))

	core.HandleDisconnect("conn-a")

	ns, ok := core.namespaces.Namespace("general")
	req.True(ok)
	req.Equal(0, ns.MemberCount())

	// History outlives the membership.
	connect(t, core, "conn-b")
	req.NoError(core.namespaces.Join("conn-b", "general", "Bob"))
	req.Len(ns.history, 1)
	req.Equal("still here", ns.history[0].Text)
}

func TestDisconnectRemovesFromEveryNamespace(t *testing.T) {
	req := require.New(t)
	core, sender := newTestCore(t, "general", "tech")
	connect(t, core, "conn-a", "conn-b")
	req.NoError(core.namespaces.Join("conn-a", "general", "Alice"))
	req.NoError(core.namespaces.Join("conn-a", "tech", "Alice"))
	req.NoError(core.namespaces.Join("conn-b", "general", "Bob"))
	sender.reset()

	core.HandleDisconnect("conn-a")

	general, _ := core.namespaces.Namespace("general")
	tech, _ := core.namespaces.Namespace("tech")
	req.NotContains(general.members, "conn-a")
	req.NotContains(tech.members, "conn-a")

	deliveries := sender.byConn("conn-b")
	req.Len(deliveries, 1)
	req.Equal(EventMemberLeft, deliveries[0].Event)
	req.Equal([]string{"Bob"}, deliveries[0].Payload.(MemberLeftPayload).Members)
}
