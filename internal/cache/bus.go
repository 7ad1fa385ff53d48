package cache

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"github.com/vikasavnish/listinghub/internal/logging"
)

// Event is an invalidation broadcast between instances.
type Event struct {
	Origin string   `json:"origin"`
	Names  []string `json:"names"`
	// Scope limits the event to entries with these params; empty means all.
	Scope string `json:"scope,omitempty"`
}

// Bus carries invalidation events to other instances.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe calls fn for each event until ctx is done.
	Subscribe(ctx context.Context, fn func(Event)) error
}

// NopBus is used when running a single instance.
type NopBus struct{}

func (NopBus) Publish(context.Context, Event) error { return nil }

func (NopBus) Subscribe(ctx context.Context, _ func(Event)) error {
	<-ctx.Done()
	return ctx.Err()
}

// RedisBus uses Redis pub/sub on a single channel.
type RedisBus struct {
	client  *redis.Client
	channel string
	log     logging.Logger
}

func NewRedisBus(client *redis.Client, channel string, log logging.Logger) *RedisBus {
	return &RedisBus{client: client, channel: channel, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(Event)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn(ctx, "dropping malformed invalidation event", "payload", msg.Payload, "err", err)
				continue
			}
			fn(ev)
		}
	}
}
