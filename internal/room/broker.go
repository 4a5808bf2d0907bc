package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Broker fans room events out to every instance hosting participants.
type Broker interface {
	Publish(ctx context.Context, roomID string, ev Event) error
}

// Deliverer hands an event to the participants connected locally.
type Deliverer interface {
	Deliver(roomID string, ev Event)
}

// LocalBroker delivers events in process.
type LocalBroker struct {
	local Deliverer
}

// NewLocalBroker returns a broker for a single instance.
func NewLocalBroker(d Deliverer) *LocalBroker {
	return &LocalBroker{local: d}
}

// Publish delivers ev to the local participants of roomID.
func (b *LocalBroker) Publish(_ context.Context, roomID string, ev Event) error {
	slog.Debug("room event", "room_id", roomID, "type", ev.Type)
	b.local.Deliver(roomID, ev)
	return nil
}

const channelPrefix = "ovida:room:"

// Channel returns the Redis channel carrying events of roomID.
func Channel(roomID string) string {
	return channelPrefix + roomID
}

// RedisBroker publishes events to Redis; Run relays every room channel back
// to the local participants, so an event reaches all instances exactly once.
type RedisBroker struct {
	client *redis.Client
	local  Deliverer
}

// NewRedisBroker connects to the Redis server at url (redis://host:port/db).
func NewRedisBroker(url string, d Deliverer) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisBroker{client: redis.NewClient(opts), local: d}, nil
}

// Publish sends ev on the room's channel.
func (b *RedisBroker) Publish(ctx context.Context, roomID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding room event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(roomID), data).Err(); err != nil {
		return fmt.Errorf("publishing to redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Run subscribes to all room channels and delivers what arrives until ctx
// is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to room channels: %w", err)
	}
	slog.Info("room relay subscribed", "pattern", channelPrefix+"*")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.relay(msg)
		}
	}
}

func (b *RedisBroker) relay(msg *redis.Message) {
	roomID := strings.TrimPrefix(msg.Channel, channelPrefix)

	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		slog.Warn("dropping malformed room event", "channel", msg.Channel, "error", err)
		return
	}
	b.local.Deliver(roomID, ev)
}

// Close closes the Redis client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
