package guard

import (
	"context"
	"sync"

	"github.com/mirkobrombin/go-verlock/v1/engine"
	verrors "github.com/mirkobrombin/go-verlock/v1/errors"
	"github.com/mirkobrombin/go-verlock/v1/metrics"
	"github.com/mirkobrombin/go-verlock/v1/store"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

// Action names a state-changing operation gated by lock checks.
type Action string

const (
	ActionChange       Action = "change"
	ActionArchive      Action = "archive"
	ActionDiscard      Action = "discard"
	ActionRevert       Action = "revert"
	ActionUnpublish    Action = "unpublish"
	ActionEditRedirect Action = "edit_redirect"
)

// Check inspects a version on behalf of a user and returns nil to allow the
// action, or an error (usually *errors.LockedError) to deny it. A missing
// lock is always success; checks deny only when a lock exists and is held by
// somebody else.
type Check func(ctx context.Context, v *version.Version, user version.User) error

// Registry holds the checks registered per action. It replaces mutation of
// shared class state with an explicit object owned by the composition root;
// checks run in registration order.
type Registry struct {
	mu     sync.RWMutex
	checks map[Action][]Check
}

// NewRegistry returns a Registry pre-wired with the standard lock checks:
// change, archive and discard inspect the target version itself, while
// revert, unpublish and edit-redirect inspect the latest draft in the
// target's content grouping.
func NewRegistry(e *engine.Engine) *Registry {
	r := EmptyRegistry()
	direct := VersionUnlocked(e)
	draft := DraftUnlocked(e)
	r.Register(ActionChange, direct)
	r.Register(ActionArchive, direct)
	r.Register(ActionDiscard, direct)
	r.Register(ActionRevert, draft)
	r.Register(ActionUnpublish, draft)
	r.Register(ActionEditRedirect, draft)
	return r
}

// EmptyRegistry returns a Registry with no checks registered.
func EmptyRegistry() *Registry {
	return &Registry{checks: make(map[Action][]Check)}
}

// Register appends a check for the action.
func (r *Registry) Register(action Action, c Check) {
	r.mu.Lock()
	r.checks[action] = append(r.checks[action], c)
	r.mu.Unlock()
}

// Run executes the checks registered for the action in order, stopping at
// the first denial. No registered checks means the action is allowed.
func (r *Registry) Run(ctx context.Context, action Action, v *version.Version, user version.User) error {
	r.mu.RLock()
	checks := append([]Check(nil), r.checks[action]...)
	r.mu.RUnlock()
	for _, c := range checks {
		if err := c(ctx, v, user); err != nil {
			return err
		}
	}
	return nil
}

// VersionUnlocked denies when the version itself carries a lock held by a
// different user.
func VersionUnlocked(e *engine.Engine) Check {
	return func(ctx context.Context, v *version.Version, user version.User) error {
		l, err := e.IsLocked(ctx, v.ID)
		if err != nil {
			return err
		}
		return deniedIfHeldByOther(l, user)
	}
}

// DraftUnlocked denies when the latest draft in the version's content
// grouping carries a lock held by a different user. The action target itself
// (published, archived) never carries a lock, but an in-progress draft ahead
// of it must not be overridden.
func DraftUnlocked(e *engine.Engine) Check {
	return func(ctx context.Context, v *version.Version, user version.User) error {
		l, err := e.LatestDraftLock(ctx, v)
		if err != nil {
			return err
		}
		return deniedIfHeldByOther(l, user)
	}
}

func deniedIfHeldByOther(l *store.Lock, user version.User) error {
	if l == nil || l.CreatedBy.Is(user) {
		return nil
	}
	metrics.DeniedCounter.Inc()
	return &verrors.LockedError{HolderID: l.CreatedBy.ID, HolderName: l.CreatedBy.Name}
}
