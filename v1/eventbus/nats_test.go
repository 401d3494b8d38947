package eventbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	nats "github.com/nats-io/nats.go"
)

func newNATSBus(t *testing.T) (*NATSBus, func()) {
	t.Helper()
	addr := os.Getenv("VERLOCK_TEST_NATS_ADDR")

	var conn *nats.Conn
	var s *server.Server
	var err error

	if addr != "" {
		t.Logf("using real NATS at %s", addr)
		conn, err = nats.Connect(addr)
	} else {
		t.Log("using embedded NATS server")
		s = natsserver.RunRandClientPortServer()
		conn, err = nats.Connect(s.ClientURL())
	}
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	cleanup := func() {
		conn.Close()
		if s != nil {
			s.Shutdown()
		}
	}
	return NewNATSBus(conn), cleanup
}

func TestNATSBusPublishSubscribe(t *testing.T) {
	b, cleanup := newNATSBus(t)
	defer cleanup()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "v1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := b.Publish(ctx, NewEvent(KindUnlocked, "v1", "alice", "carol")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	ev := waitEvent(t, ch)
	if ev.Kind != KindUnlocked || ev.Holder != "alice" || ev.By != "carol" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestNATSBusUnsubscribeClosesChannel(t *testing.T) {
	b, cleanup := newNATSBus(t)
	defer cleanup()
	ctx := context.Background()

	ch, err := b.Subscribe(ctx, "v1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Unsubscribe(ctx, "v1", ch); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed on unsubscribe")
	}
}
