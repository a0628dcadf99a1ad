package relay

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope wraps a relay event for pub/sub transport. Origin lets each node
// skip the copies of its own broadcasts.
type envelope struct {
	Origin string `json:"origin"`
	ChatID string `json:"chat_id"`
	Event  Event  `json:"event"`
}

// RedisBridge fans relay broadcasts out over a redis pub/sub channel so
// multiple relay instances share rooms without changing the relay contract.
type RedisBridge struct {
	client  *redis.Client
	channel string
	nodeID  string
	logger  *zap.Logger
}

// NewRedisBridge creates a bridge publishing on the named channel.
func NewRedisBridge(client *redis.Client, channel string, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		client:  client,
		channel: channel,
		nodeID:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish sends the event to the channel. Failures are logged and the event
// dropped; local delivery already happened.
func (b *RedisBridge) Publish(chatID string, event Event) {
	payload, err := json.Marshal(envelope{Origin: b.nodeID, ChatID: chatID, Event: event})
	if err != nil {
		b.logger.Warn("marshal relay envelope", zap.Error(err))
		return
	}
	if err := b.client.Publish(context.Background(), b.channel, payload).Err(); err != nil {
		b.logger.Warn("publish relay event", zap.Error(err))
	}
}

// Listen subscribes to the channel and injects remote events into the local
// relay until ctx is cancelled. Run it in its own goroutine.
func (b *RedisBridge) Listen(ctx context.Context, r *Relay) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("decode relay envelope", zap.Error(err))
				continue
			}
			if env.Origin == b.nodeID {
				continue
			}
			r.DeliverLocal(env.ChatID, env.Event)
		}
	}
}
