package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"focusrooms/backend/internal/logging"
)

const DefaultChannel = "focusrooms:changes"

// Bridge relays changes between hubs of different processes through a redis
// pub/sub channel. Local publishes are forwarded out; messages from other
// instances are delivered to local subscribers only.
type Bridge struct {
	client   *redis.Client
	hub      *Hub
	channel  string
	instance string

	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewBridge(client *redis.Client, hub *Hub, channel string) *Bridge {
	if client == nil {
		panic("redis client cannot be nil for Bridge")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Bridge{
		client:   client,
		hub:      hub,
		channel:  channel,
		instance: uuid.NewString(),
		done:     make(chan struct{}),
	}
}

func (b *Bridge) Instance() string {
	return b.instance
}

// Start subscribes to the channel and hooks the hub. It returns once the
// subscription is confirmed by the server.
func (b *Bridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.pubsub = pubsub

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.hub.onPublish(func(change Change) { b.forward(runCtx, change) })

	go b.consume(runCtx, pubsub.Channel())
	logging.Info().Str("channel", b.channel).Str("instance", b.instance).Msg("change feed bridge started")
	return nil
}

func (b *Bridge) forward(ctx context.Context, change Change) {
	if ctx.Err() != nil {
		return
	}
	change.Origin = b.instance
	payload, err := json.Marshal(change)
	if err != nil {
		logging.Err(err).Str("table", string(change.Table)).Msg("encode change for bridge")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.client.Publish(pubCtx, b.channel, payload).Err(); err != nil {
		logging.Warn().Err(err).Str("table", string(change.Table)).Str("room_id", change.RoomID).Msg("bridge publish failed")
	}
}

func (b *Bridge) consume(ctx context.Context, messages <-chan *redis.Message) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				logging.Warn().Err(err).Msg("discarding malformed bridge message")
				continue
			}
			if change.Origin == b.instance {
				continue
			}
			b.hub.deliver(change)
		}
	}
}

// Close stops forwarding and releases the redis subscription.
func (b *Bridge) Close() error {
	var err error
	b.once.Do(func() {
		if b.cancel == nil {
			return
		}
		b.cancel()
		err = b.pubsub.Close()
		<-b.done
	})
	return err
}
