package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

var errSendBufferFull = errors.New("send buffer full")

// client is one websocket connection viewed as a relay subscriber. Outbound
// events go through a buffered channel drained by writePump so a slow socket
// never blocks a broadcast.
type client struct {
	id     string
	actor  domain.Actor
	name   string
	conn   *websocket.Conn
	send   chan relay.Event
	once   sync.Once
	logger *zap.Logger
}

func newClient(id string, actor domain.Actor, name string, conn *websocket.Conn, bufferSize int, logger *zap.Logger) *client {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	return &client{
		id:     id,
		actor:  actor,
		name:   name,
		conn:   conn,
		send:   make(chan relay.Event, bufferSize),
		logger: logger,
	}
}

// ID implements relay.Connection.
func (c *client) ID() string { return c.id }

// Send implements relay.Connection. It never blocks; a full buffer means the
// socket is too slow and this event is dropped for it.
func (c *client) Send(event relay.Event) error {
	select {
	case c.send <- event:
		return nil
	default:
		return errSendBufferFull
	}
}

// close releases the send channel. Call only after the relay has forgotten
// this connection.
func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debug("websocket write failed",
					zap.String("connection_id", c.id),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
