package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/mirkobrombin/go-verlock/v1/engine"
	verrors "github.com/mirkobrombin/go-verlock/v1/errors"
	"github.com/mirkobrombin/go-verlock/v1/guard"
	"github.com/mirkobrombin/go-verlock/v1/store"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

var (
	alice = version.User{ID: "alice", Name: "Alice"}
	bob   = version.User{ID: "bob", Name: "Bob"}
)

// memSaver records saves and optionally fails them.
type memSaver struct {
	saved []*version.Version
	fail  error
}

func (s *memSaver) Save(ctx context.Context, v *version.Version) error {
	if s.fail != nil {
		return s.fail
	}
	s.saved = append(s.saved, v)
	return nil
}

// memRepo resolves the latest draft per grouping from the saves it has seen.
type memRepo struct {
	drafts map[string]*version.Version
}

func (r *memRepo) LatestDraft(ctx context.Context, group string) (*version.Version, error) {
	return r.drafts[group], nil
}

func TestOnSavedDraftLockedByAuthor(t *testing.T) {
	e := engine.New(store.NewInMemory(), nil)
	sync := NewSynchronizer(e)
	ctx := context.Background()

	v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	if err := sync.OnSaved(ctx, v); err != nil {
		t.Fatalf("on saved: %v", err)
	}
	l, _ := e.IsLocked(ctx, v.ID)
	if l == nil || l.CreatedBy.ID != "alice" {
		t.Fatalf("draft not locked by author: %+v", l)
	}
}

func TestOnSavedEveryTerminalStateUnlocks(t *testing.T) {
	for _, state := range []version.State{
		version.StatePublished,
		version.StateUnpublished,
		version.StateArchived,
		version.StateDiscarded,
	} {
		e := engine.New(store.NewInMemory(), nil)
		sync := NewSynchronizer(e)
		ctx := context.Background()

		v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
		_ = sync.OnSaved(ctx, v)

		v.State = state
		if err := sync.OnSaved(ctx, v); err != nil {
			t.Fatalf("%s: on saved: %v", state, err)
		}
		if l, _ := e.IsLocked(ctx, v.ID); l != nil {
			t.Fatalf("%s version still locked: %+v", state, l)
		}
	}
}

func TestOnSavedReentrantDoesNotReassign(t *testing.T) {
	e := engine.New(store.NewInMemory(), nil)
	sync := NewSynchronizer(e)
	ctx := context.Background()

	v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	_ = sync.OnSaved(ctx, v)

	// A later save records a different author, but the existing lock stays
	// with the original locking user.
	v.Author = bob
	if err := sync.OnSaved(ctx, v); err != nil {
		t.Fatalf("on saved: %v", err)
	}
	l, _ := e.IsLocked(ctx, v.ID)
	if l.CreatedBy.ID != "alice" {
		t.Fatalf("re-entrant save reassigned the lock to %s", l.CreatedBy.ID)
	}
}

func TestCopyClaimsForCopier(t *testing.T) {
	e := engine.New(store.NewInMemory(), nil)
	sync := NewSynchronizer(e)
	ctx := context.Background()

	v1 := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	_ = sync.OnSaved(ctx, v1)

	v2 := version.Copy(v1, bob)
	if v2.ID == v1.ID {
		t.Fatal("copy kept the source id")
	}
	if err := sync.OnSaved(ctx, v2); err != nil {
		t.Fatalf("on saved: %v", err)
	}

	l2, _ := e.IsLocked(ctx, v2.ID)
	if l2 == nil || l2.CreatedBy.ID != "bob" {
		t.Fatalf("copy not locked by copier: %+v", l2)
	}
	l1, _ := e.IsLocked(ctx, v1.ID)
	if l1 == nil || l1.CreatedBy.ID != "alice" {
		t.Fatalf("source lock disturbed: %+v", l1)
	}
}

func TestWrapSaverRunsHooksAfterCommitOnly(t *testing.T) {
	e := engine.New(store.NewInMemory(), nil)
	sync := NewSynchronizer(e)
	hooks := NewHooks()
	hooks.Register(sync.OnSaved)

	inner := &memSaver{fail: errors.New("db down")}
	saver := WrapSaver(inner, hooks)
	ctx := context.Background()

	v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	if err := saver.Save(ctx, v); err == nil {
		t.Fatal("expected save failure")
	}
	if l, _ := e.IsLocked(ctx, v.ID); l != nil {
		t.Fatalf("hook ran on failed save: %+v", l)
	}

	inner.fail = nil
	if err := saver.Save(ctx, v); err != nil {
		t.Fatalf("save: %v", err)
	}
	if l, _ := e.IsLocked(ctx, v.ID); l == nil {
		t.Fatal("hook did not run on committed save")
	}
}

func TestHooksRunInRegistrationOrder(t *testing.T) {
	hooks := NewHooks()
	var order []string
	hooks.Register(func(ctx context.Context, v *version.Version) error {
		order = append(order, "first")
		return nil
	})
	hooks.Register(func(ctx context.Context, v *version.Version) error {
		order = append(order, "second")
		return nil
	})
	if err := hooks.Run(context.Background(), &version.Version{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestEditorReacquiresForEditor(t *testing.T) {
	st := store.NewInMemory()
	repo := &memRepo{drafts: make(map[string]*version.Version)}
	e := engine.New(st, repo)
	sync := NewSynchronizer(e)
	hooks := NewHooks()
	hooks.Register(sync.OnSaved)
	saver := WrapSaver(&memSaver{}, hooks)
	editor := NewEditor(guard.NewRegistry(e), saver)
	ctx := context.Background()

	v := &version.Version{ID: "v1", Group: "page-1", State: version.StateDraft, Author: alice}
	repo.drafts[v.Group] = v
	_ = sync.OnSaved(ctx, v)

	// Bob cannot enter edit mode while alice holds the draft lock.
	err := editor.BeginEdit(ctx, v, bob)
	var le *verrors.LockedError
	if !errors.As(err, &le) || le.HolderID != "alice" {
		t.Fatalf("expected LockedError(alice), got %v", err)
	}

	// After the lock is released, bob's entry re-acquires it for bob.
	if err := e.Release(ctx, v.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := editor.BeginEdit(ctx, v, bob); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	l, _ := e.IsLocked(ctx, v.ID)
	if l == nil || l.CreatedBy.ID != "bob" {
		t.Fatalf("edit did not re-acquire for bob: %+v", l)
	}
	if v.Author.ID != "bob" {
		t.Fatalf("edit did not record bob as author: %+v", v.Author)
	}
}
