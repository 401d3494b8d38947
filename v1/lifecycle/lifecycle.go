package lifecycle

import (
	"context"
	"sync"

	"github.com/mirkobrombin/go-verlock/v1/engine"
	"github.com/mirkobrombin/go-verlock/v1/guard"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

// Synchronizer keeps lock state consistent with version state. It is a pure
// function of the state a save resulted in: a draft is locked by its current
// author, anything else is unlocked. There is no per-transition casing, so
// publish, unpublish, archive, discard, revert and copy-on-edit all flow
// through the same rule.
type Synchronizer struct {
	engine *engine.Engine
}

// NewSynchronizer returns a Synchronizer driving the given engine.
func NewSynchronizer(e *engine.Engine) *Synchronizer {
	return &Synchronizer{engine: e}
}

// OnSaved reconciles lock state after a version save has committed. Acquire
// is idempotent, so a re-entrant save of a draft never reassigns the lock
// away from the original locking user.
func (s *Synchronizer) OnSaved(ctx context.Context, v *version.Version) error {
	if v.State == version.StateDraft {
		return s.engine.Acquire(ctx, v.ID, v.Author)
	}
	return s.engine.Release(ctx, v.ID)
}

// Hook runs after a version save has committed.
type Hook func(ctx context.Context, v *version.Version) error

// Hooks is an explicit post-save hook registry. Hooks run in registration
// order; the composition root owns the instance and wires it into the host
// system's save path.
type Hooks struct {
	mu    sync.RWMutex
	hooks []Hook
}

// NewHooks returns an empty registry.
func NewHooks() *Hooks {
	return &Hooks{}
}

// Register appends a hook.
func (h *Hooks) Register(hook Hook) {
	h.mu.Lock()
	h.hooks = append(h.hooks, hook)
	h.mu.Unlock()
}

// Run invokes every hook in order, stopping at the first error.
func (h *Hooks) Run(ctx context.Context, v *version.Version) error {
	h.mu.RLock()
	hooks := append([]Hook(nil), h.hooks...)
	h.mu.RUnlock()
	for _, hook := range hooks {
		if err := hook(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

type hookedSaver struct {
	inner version.Saver
	hooks *Hooks
}

// WrapSaver decorates the host system's saver so registered hooks run after
// every successful save. A failed save runs no hooks: lock state must only
// reflect committed version state.
func WrapSaver(inner version.Saver, hooks *Hooks) version.Saver {
	return &hookedSaver{inner: inner, hooks: hooks}
}

// Save implements version.Saver.
func (s *hookedSaver) Save(ctx context.Context, v *version.Version) error {
	if err := s.inner.Save(ctx, v); err != nil {
		return err
	}
	return s.hooks.Run(ctx, v)
}

// Editor is the edit-redirect entry point: it checks that no other user
// holds the grouping's draft lock, then re-saves the version with the
// requesting user as author. The post-save hook re-acquires the lock for
// that user if it was previously released.
type Editor struct {
	checks *guard.Registry
	saver  version.Saver
}

// NewEditor returns an Editor. saver should be a WrapSaver-decorated saver
// so the lock synchronizer runs on the re-save.
func NewEditor(checks *guard.Registry, saver version.Saver) *Editor {
	return &Editor{checks: checks, saver: saver}
}

// BeginEdit lets user enter edit mode on v. The denial, if any, is a
// *errors.LockedError naming the current holder.
func (e *Editor) BeginEdit(ctx context.Context, v *version.Version, user version.User) error {
	if err := e.checks.Run(ctx, guard.ActionEditRedirect, v, user); err != nil {
		return err
	}
	v.Author = user
	return e.saver.Save(ctx, v)
}
