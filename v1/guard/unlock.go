package guard

import (
	"context"

	"github.com/mirkobrombin/go-verlock/v1/engine"
	verrors "github.com/mirkobrombin/go-verlock/v1/errors"
	"github.com/mirkobrombin/go-verlock/v1/notify"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

// Authorizer decides whether a user holds the distinct unlock permission.
// The permission is independent of lock ownership: a privileged user may
// remove somebody else's lock without assuming their identity.
type Authorizer interface {
	CanReleaseLock(ctx context.Context, user version.User) (bool, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, user version.User) (bool, error)

func (f AuthorizerFunc) CanReleaseLock(ctx context.Context, user version.User) (bool, error) {
	return f(ctx, user)
}

// Unlocker performs the explicit unlock operation: a privileged release of a
// draft's lock, with notification of the previous holder. Callers must route
// it through a state-changing entry point only.
type Unlocker struct {
	engine   *engine.Engine
	auth     Authorizer
	notifier notify.Notifier
}

// NewUnlocker returns an Unlocker. notifier may be nil, in which case no
// notification is sent.
func NewUnlocker(e *engine.Engine, auth Authorizer, notifier notify.Notifier) *Unlocker {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Unlocker{engine: e, auth: auth, notifier: notifier}
}

// Unlock removes the lock on v on behalf of by.
//
// A non-draft version cannot be unlocked: that is errors.ErrNotDraft, a
// not-applicable outcome distinct from a permission denial. A caller without
// the unlock permission gets errors.ErrPermissionDenied regardless of
// whether they hold the lock. Unlocking an unlocked draft succeeds silently.
// When the removed lock belonged to another user, the notifier is told.
func (u *Unlocker) Unlock(ctx context.Context, v *version.Version, by version.User) error {
	if v.State != version.StateDraft {
		return verrors.ErrNotDraft
	}
	ok, err := u.auth.CanReleaseLock(ctx, by)
	if err != nil {
		return err
	}
	if !ok {
		return verrors.ErrPermissionDenied
	}

	lock, err := u.engine.IsLocked(ctx, v.ID)
	if err != nil {
		return err
	}
	if err := u.engine.ReleaseBy(ctx, v.ID, by); err != nil {
		return err
	}
	if lock != nil && !lock.CreatedBy.Is(by) {
		return u.notifier.LockReleased(ctx, v, lock, by)
	}
	return nil
}
