package redis

import (
	"context"
	"fmt"

	"github.com/tkdojang/dojang/internal/infrastructure/messaging"
)

// PubSub carries relayed events over Redis channels namespaced by the
// cache configuration.
type PubSub struct {
	cache *Cache
}

var _ messaging.Transport = (*PubSub)(nil)

// NewPubSub creates a PubSub over cache.
func NewPubSub(cache *Cache) *PubSub {
	return &PubSub{cache: cache}
}

// Publish implements messaging.Transport.
func (p *PubSub) Publish(ctx context.Context, channel, payload string) error {
	return p.cache.client.Publish(ctx, p.cache.channel(channel), payload).Err()
}

// Subscribe implements messaging.Transport. It returns once Redis has
// confirmed the subscription.
func (p *PubSub) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	sub := p.cache.client.Subscribe(ctx, p.cache.channel(channel))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer sub.Close()
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
