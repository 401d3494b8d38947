package notify

import (
	"context"
	"testing"
	"time"

	"github.com/mirkobrombin/go-verlock/v1/store"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

var (
	alice = version.User{ID: "alice", Name: "Alice", Email: "alice@example.com"}
	carol = version.User{ID: "carol", Name: "Carol", Email: "carol@example.com"}
)

func testLock(holder version.User) *store.Lock {
	return &store.Lock{
		ID:        "lock-1",
		VersionID: "v1",
		CreatedBy: holder,
		Created:   time.Now(),
	}
}

func TestNewEmailRejectsBadURL(t *testing.T) {
	if _, err := NewEmail("not a url"); err == nil {
		t.Fatal("expected error for invalid service url")
	}
}

func TestEmailSkipsSelfUnlock(t *testing.T) {
	// The logger service never reaches the network, so a send would succeed;
	// the point is that none happens for a self-unlock.
	e, err := NewEmail("logger://")
	if err != nil {
		t.Fatalf("new email: %v", err)
	}
	v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	if err := e.LockReleased(context.Background(), v, testLock(alice), alice); err != nil {
		t.Fatalf("self unlock: %v", err)
	}
}

func TestEmailSkipsMissingLock(t *testing.T) {
	e, err := NewEmail("logger://")
	if err != nil {
		t.Fatalf("new email: %v", err)
	}
	v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	if err := e.LockReleased(context.Background(), v, nil, carol); err != nil {
		t.Fatalf("missing lock: %v", err)
	}
}

func TestEmailSendsForForeignUnlock(t *testing.T) {
	e, err := NewEmail("logger://", WithSiteName("Example CMS"), WithBaseURL("https://cms.example.com"))
	if err != nil {
		t.Fatalf("new email: %v", err)
	}
	v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	if err := e.LockReleased(context.Background(), v, testLock(alice), carol); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestNoopNotifier(t *testing.T) {
	v := &version.Version{ID: "v1"}
	if err := (Noop{}).LockReleased(context.Background(), v, testLock(alice), carol); err != nil {
		t.Fatalf("noop: %v", err)
	}
}
