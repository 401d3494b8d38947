package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "verlock:events:"

type redisSubscription struct {
	pubsub *redis.PubSub
	chans  []chan Event
}

// RedisBus implements Bus using Redis pub/sub. Events are JSON documents on
// a channel per version.
type RedisBus struct {
	client *redis.Client
	mu     sync.Mutex
	subs   map[string]*redisSubscription
}

// NewRedisBus returns a new RedisBus using the provided client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, subs: make(map[string]*redisSubscription)}
}

func redisChannel(versionID string) string {
	return redisChannelPrefix + versionID
}

// Publish implements Bus.Publish.
func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, redisChannel(ev.Version), data).Err()
}

// Subscribe implements Bus.Subscribe.
func (b *RedisBus) Subscribe(ctx context.Context, versionID string) (chan Event, error) {
	ch := make(chan Event, 1)
	b.mu.Lock()
	sub := b.subs[versionID]
	if sub == nil {
		pubsub := b.client.Subscribe(context.Background(), redisChannel(versionID))
		sub = &redisSubscription{pubsub: pubsub}
		b.subs[versionID] = sub
		go b.forward(versionID, pubsub)
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), versionID, ch)
	}()
	return ch, nil
}

func (b *RedisBus) forward(versionID string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			continue
		}
		b.mu.Lock()
		sub := b.subs[versionID]
		var chans []chan Event
		if sub != nil {
			chans = append([]chan Event(nil), sub.chans...)
		}
		b.mu.Unlock()
		for _, c := range chans {
			select {
			case c <- ev:
			default:
			}
		}
	}
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *RedisBus) Unsubscribe(ctx context.Context, versionID string, ch chan Event) error {
	b.mu.Lock()
	sub := b.subs[versionID]
	if sub == nil {
		b.mu.Unlock()
		return nil
	}
	for i, c := range sub.chans {
		if c == ch {
			sub.chans[i] = sub.chans[len(sub.chans)-1]
			sub.chans = sub.chans[:len(sub.chans)-1]
			close(c)
			break
		}
	}
	if len(sub.chans) == 0 {
		delete(b.subs, versionID)
		b.mu.Unlock()
		return sub.pubsub.Close()
	}
	b.mu.Unlock()
	return nil
}
