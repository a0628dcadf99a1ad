// Package relay distributes chat events to connected participants. It keeps
// a per-chat room registry of live connections and delivers message and
// typing events to room members. Delivery is best-effort: disconnected
// clients re-fetch chat history on reconnect. Membership is presence-only;
// message authorship is authorized by the chat store, not here.
package relay

import (
	"sync"

	"go.uber.org/zap"
)

// Event is a single realtime frame pushed to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types on the client-facing surface.
const (
	EventReceiveMessage = "receive_message"
	EventUserTyping     = "user_typing"
)

// TypingPayload is the body of a user_typing event.
type TypingPayload struct {
	User     string `json:"user"`
	IsTyping bool   `json:"isTyping"`
}

// Connection is a live subscriber. Send must preserve the order of calls
// made to it; a failed send drops only that connection's event.
type Connection interface {
	ID() string
	Send(Event) error
}

// Bridge fans broadcasts out to other relay instances. The zero
// configuration (nil bridge) keeps everything in-process.
type Bridge interface {
	Publish(chatID string, event Event)
}

// Relay is the room registry. A single mutex guards membership and
// broadcast so events reach each member in FIFO order per room and no
// connection is delivered to mid-removal.
type Relay struct {
	mu     sync.Mutex
	rooms  map[string]map[Connection]struct{}
	joined map[Connection]map[string]struct{}
	bridge Bridge
	logger *zap.Logger
}

// New creates a relay with an empty registry.
func New(logger *zap.Logger) *Relay {
	return &Relay{
		rooms:  make(map[string]map[Connection]struct{}),
		joined: make(map[Connection]map[string]struct{}),
		logger: logger,
	}
}

// SetBridge installs a fan-out bridge. Call before serving connections.
func (r *Relay) SetBridge(bridge Bridge) {
	r.bridge = bridge
}

// Join registers conn as a member of the chat's room. A connection may be a
// member of any number of rooms.
func (r *Relay) Join(conn Connection, chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[chatID] == nil {
		r.rooms[chatID] = make(map[Connection]struct{})
	}
	r.rooms[chatID][conn] = struct{}{}

	if r.joined[conn] == nil {
		r.joined[conn] = make(map[string]struct{})
	}
	r.joined[conn][chatID] = struct{}{}

	r.logger.Debug("connection joined room",
		zap.String("connection_id", conn.ID()),
		zap.String("chat_id", chatID))
}

// Leave removes the connection from every room it joined. Idempotent; after
// Leave returns no broadcast can reference the connection.
func (r *Relay) Leave(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chatID := range r.joined[conn] {
		delete(r.rooms[chatID], conn)
		if len(r.rooms[chatID]) == 0 {
			delete(r.rooms, chatID)
		}
	}
	delete(r.joined, conn)
}

// BroadcastMessage delivers the message to every connection in the room,
// including the sender's own connections; clients reconcile optimistic
// copies by message id.
func (r *Relay) BroadcastMessage(chatID string, message any) {
	event := Event{Type: EventReceiveMessage, Payload: message}
	r.deliver(chatID, event, nil)
	if r.bridge != nil {
		r.bridge.Publish(chatID, event)
	}
}

// BroadcastTyping delivers a typing-state event to the room, excluding the
// sender's own connection.
func (r *Relay) BroadcastTyping(chatID, user string, isTyping bool, exclude Connection) {
	event := Event{Type: EventUserTyping, Payload: TypingPayload{User: user, IsTyping: isTyping}}
	r.deliver(chatID, event, exclude)
	if r.bridge != nil {
		r.bridge.Publish(chatID, event)
	}
}

// DeliverLocal injects an event from another relay instance into the local
// room without republishing it.
func (r *Relay) DeliverLocal(chatID string, event Event) {
	r.deliver(chatID, event, nil)
}

func (r *Relay) deliver(chatID string, event Event, exclude Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conn := range r.rooms[chatID] {
		if conn == exclude {
			continue
		}
		if err := conn.Send(event); err != nil {
			r.logger.Warn("dropping relay event",
				zap.String("connection_id", conn.ID()),
				zap.String("chat_id", chatID),
				zap.String("event_type", event.Type),
				zap.Error(err))
		}
	}
}

// RoomSize reports current membership of a room.
func (r *Relay) RoomSize(chatID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[chatID])
}
