package notify

import (
	"context"

	"github.com/mirkobrombin/go-verlock/v1/store"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

// Notifier is told when a user removes a lock held by somebody else, so the
// previous holder can be informed their draft is no longer claimed.
type Notifier interface {
	// LockReleased reports that the lock on v, previously held by holder,
	// was removed by `by`. Implementations should not notify when holder
	// and by are the same user.
	LockReleased(ctx context.Context, v *version.Version, lock *store.Lock, by version.User) error
}

// Noop is a Notifier that does nothing.
type Noop struct{}

// LockReleased implements Notifier.LockReleased.
func (Noop) LockReleased(ctx context.Context, v *version.Version, lock *store.Lock, by version.User) error {
	return nil
}
