package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	nats "github.com/nats-io/nats.go"
)

const natsSubjectPrefix = "verlock.events."

type natsSubscription struct {
	sub   *nats.Subscription
	chans []chan Event
}

// NATSBus implements Bus using a NATS backend. Events are JSON documents on
// a subject per version.
type NATSBus struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*natsSubscription
}

// NewNATSBus returns a new NATSBus using the provided connection.
func NewNATSBus(conn *nats.Conn) *NATSBus {
	return &NATSBus{conn: conn, subs: make(map[string]*natsSubscription)}
}

func natsSubject(versionID string) string {
	return natsSubjectPrefix + versionID
}

// Publish implements Bus.Publish.
func (b *NATSBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.conn.Publish(natsSubject(ev.Version), data)
}

// Subscribe implements Bus.Subscribe.
func (b *NATSBus) Subscribe(ctx context.Context, versionID string) (chan Event, error) {
	ch := make(chan Event, 1)
	b.mu.Lock()
	sub := b.subs[versionID]
	if sub == nil {
		ns, err := b.conn.Subscribe(natsSubject(versionID), func(msg *nats.Msg) {
			var ev Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				return
			}
			b.mu.Lock()
			cur := b.subs[versionID]
			var chans []chan Event
			if cur != nil {
				chans = append([]chan Event(nil), cur.chans...)
			}
			b.mu.Unlock()
			for _, c := range chans {
				select {
				case c <- ev:
				default:
				}
			}
		})
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		sub = &natsSubscription{sub: ns}
		b.subs[versionID] = sub
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), versionID, ch)
	}()
	return ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *NATSBus) Unsubscribe(ctx context.Context, versionID string, ch chan Event) error {
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
		return sub.sub.Unsubscribe()
	}
	b.mu.Unlock()
	return nil
}
