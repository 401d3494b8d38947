package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	uuid "github.com/hashicorp/go-uuid"
)

// Kind distinguishes lock lifecycle events.
type Kind string

const (
	// KindLocked is emitted when a lock is created for a version.
	KindLocked Kind = "locked"
	// KindUnlocked is emitted when a lock is removed from a version.
	KindUnlocked Kind = "unlocked"
)

// Event describes a lock state change for one version. Holder is the lock
// owner; By is set on unlock events when the release was performed by a
// different user than the holder.
type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Version string    `json:"version"`
	Holder  string    `json:"holder,omitempty"`
	By      string    `json:"by,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent returns an Event with a fresh ID and timestamp.
func NewEvent(kind Kind, versionID, holder, by string) Event {
	id, _ := uuid.GenerateUUID()
	return Event{
		ID:      id,
		Kind:    kind,
		Version: versionID,
		Holder:  holder,
		By:      by,
		At:      time.Now(),
	}
}

// Bus propagates lock events between nodes and to indicator consumers.
// Subscriptions are keyed by version identity.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, versionID string) (chan Event, error)
	Unsubscribe(ctx context.Context, versionID string, ch chan Event) error
}

// InMemoryBus is a local implementation of Bus mainly for testing and
// single-process deployments.
type InMemoryBus struct {
	mu        sync.Mutex
	subs      map[string][]chan Event
	published uint64
	delivered uint64
}

// NewInMemoryBus returns a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]chan Event)}
}

// Publish implements Bus.Publish.
func (b *InMemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	chans := append([]chan Event(nil), b.subs[ev.Version]...)
	b.mu.Unlock()
	atomic.AddUint64(&b.published, 1)
	for _, ch := range chans {
		select {
		case ch <- ev:
			atomic.AddUint64(&b.delivered, 1)
		default:
		}
	}
	return nil
}

// Subscribe implements Bus.Subscribe.
func (b *InMemoryBus) Subscribe(ctx context.Context, versionID string) (chan Event, error) {
	ch := make(chan Event, 1)
	b.mu.Lock()
	b.subs[versionID] = append(b.subs[versionID], ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), versionID, ch)
	}()
	return ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *InMemoryBus) Unsubscribe(ctx context.Context, versionID string, ch chan Event) error {
	b.mu.Lock()
	subs := b.subs[versionID]
	for i, c := range subs {
		if c == ch {
			subs[i] = subs[len(subs)-1]
			subs = subs[:len(subs)-1]
			b.subs[versionID] = subs
			close(c)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, versionID)
	}
	b.mu.Unlock()
	return nil
}

// Metrics reports publish/delivery counts for the in-memory bus.
type Metrics struct {
	Published uint64
	Delivered uint64
}

func (b *InMemoryBus) Metrics() Metrics {
	return Metrics{
		Published: atomic.LoadUint64(&b.published),
		Delivered: atomic.LoadUint64(&b.delivered),
	}
}
