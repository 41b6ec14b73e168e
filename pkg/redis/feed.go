package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Feed relays "collection changed" notifications between registry processes
// over a Redis pub/sub channel. Each process tags its messages with its own
// origin so it can ignore its own echo.
type Feed struct {
	client  *redis.Client
	channel string
	origin  string
}

// NewFeed returns a Feed publishing on channel. origin identifies this process.
func NewFeed(client *redis.Client, channel, origin string) *Feed {
	return &Feed{client: client, channel: channel, origin: origin}
}

// Notify announces that the asset collection changed.
func (f *Feed) Notify(ctx context.Context) error {
	if err := f.client.Publish(ctx, f.channel, f.origin).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Listen calls onRemoteChange for every notification published by another
// process until ctx is cancelled. The subscription is confirmed before
// Listen returns; the delivery loop runs in its own goroutine.
func (f *Feed) Listen(ctx context.Context, onRemoteChange func()) error {
	sub := f.client.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}

	go func() {
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
				if msg.Payload == f.origin {
					continue
				}
				onRemoteChange()
			}
		}
	}()
	return nil
}
