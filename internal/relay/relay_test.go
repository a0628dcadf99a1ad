package relay

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeConn records events in arrival order.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("socket gone")
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func TestBroadcastReachesRoomInOrder(t *testing.T) {
	r := New(zap.NewNop())
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	r.Join(a, "chat-1")
	r.Join(b, "chat-1")

	r.BroadcastMessage("chat-1", "m1")
	r.BroadcastMessage("chat-1", "m2")

	for _, conn := range []*fakeConn{a, b} {
		events := conn.received()
		require.Len(t, events, 2, "connection %s", conn.id)
		assert.Equal(t, "m1", events[0].Payload)
		assert.Equal(t, "m2", events[1].Payload)
		assert.Equal(t, EventReceiveMessage, events[0].Type)
	}
}

func TestBroadcastIncludesSenderConnections(t *testing.T) {
	r := New(zap.NewNop())
	sender := &fakeConn{id: "sender"}
	r.Join(sender, "chat-1")

	r.BroadcastMessage("chat-1", "hello")

	require.Len(t, sender.received(), 1)
}

func TestBroadcastScopedToRoom(t *testing.T) {
	r := New(zap.NewNop())
	inRoom := &fakeConn{id: "in"}
	elsewhere := &fakeConn{id: "out"}
	r.Join(inRoom, "chat-1")
	r.Join(elsewhere, "chat-2")

	r.BroadcastMessage("chat-1", "hello")

	assert.Len(t, inRoom.received(), 1)
	assert.Empty(t, elsewhere.received())
}

func TestTypingExcludesSender(t *testing.T) {
	r := New(zap.NewNop())
	typist := &fakeConn{id: "typist"}
	other := &fakeConn{id: "other"}
	r.Join(typist, "chat-1")
	r.Join(other, "chat-1")

	r.BroadcastTyping("chat-1", "Ada", true, typist)

	assert.Empty(t, typist.received())
	events := other.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventUserTyping, events[0].Type)
	assert.Equal(t, TypingPayload{User: "Ada", IsTyping: true}, events[0].Payload)
}

func TestLeaveRemovesFromAllRooms(t *testing.T) {
	r := New(zap.NewNop())
	conn := &fakeConn{id: "a"}
	r.Join(conn, "chat-1")
	r.Join(conn, "chat-2")

	r.Leave(conn)
	r.Leave(conn) // idempotent

	r.BroadcastMessage("chat-1", "hello")
	r.BroadcastMessage("chat-2", "hello")

	assert.Empty(t, conn.received())
	assert.Zero(t, r.RoomSize("chat-1"))
	assert.Zero(t, r.RoomSize("chat-2"))
}

func TestFailedSendDropsOnlyThatConnection(t *testing.T) {
	r := New(zap.NewNop())
	broken := &fakeConn{id: "broken", fail: true}
	healthy := &fakeConn{id: "healthy"}
	r.Join(broken, "chat-1")
	r.Join(healthy, "chat-1")

	r.BroadcastMessage("chat-1", "hello")

	assert.Empty(t, broken.received())
	assert.Len(t, healthy.received(), 1)
	// the broken connection stays a member until it leaves
	assert.Equal(t, 2, r.RoomSize("chat-1"))
}

type recordingBridge struct {
	mu     sync.Mutex
	chats  []string
	events []Event
}

func (b *recordingBridge) Publish(chatID string, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chats = append(b.chats, chatID)
	b.events = append(b.events, event)
}

func TestBridgePublishAndLocalDelivery(t *testing.T) {
	r := New(zap.NewNop())
	bridge := &recordingBridge{}
	r.SetBridge(bridge)

	local := &fakeConn{id: "local"}
	r.Join(local, "chat-1")

	r.BroadcastMessage("chat-1", "hello")
	require.Len(t, bridge.events, 1)
	assert.Equal(t, []string{"chat-1"}, bridge.chats)

	// remote inject delivers locally without republishing
	r.DeliverLocal("chat-1", Event{Type: EventReceiveMessage, Payload: "from-peer"})
	assert.Len(t, bridge.events, 1)
	events := local.received()
	require.Len(t, events, 2)
	assert.Equal(t, "from-peer", events[1].Payload)
}
