package engine

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	verrors "github.com/mirkobrombin/go-verlock/v1/errors"
	"github.com/mirkobrombin/go-verlock/v1/eventbus"
	"github.com/mirkobrombin/go-verlock/v1/metrics"
	"github.com/mirkobrombin/go-verlock/v1/store"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-verlock/v1/engine")

// Engine is the only component permitted to mutate the lock store. All
// locking policy lives here; everything else reads lock state through it.
type Engine struct {
	store store.Store
	repo  version.Repository

	bus          eventbus.Bus
	traceEnabled bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus makes the engine publish lock events on bus whenever a lock row is
// actually created or removed.
func WithBus(bus eventbus.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithTracing enables OpenTelemetry spans on mutating operations.
func WithTracing() Option {
	return func(e *Engine) {
		e.traceEnabled = true
	}
}

// New returns an Engine over the given store. repo resolves "latest draft in
// group" queries and may be nil if LatestDraftLock is never used.
func New(s store.Store, repo version.Repository, opts ...Option) *Engine {
	e := &Engine{store: s, repo: repo}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsLocked returns the lock currently held on the version, or nil if there
// is none. It always consults the store; lock state is never answered from
// a cache.
func (e *Engine) IsLocked(ctx context.Context, versionID string) (*store.Lock, error) {
	return e.store.Get(ctx, versionID)
}

// IsUnlockedFor reports whether user may treat the version as unlocked:
// either no lock exists, or the lock is held by user. This is the central
// authorization predicate consumed by guards, admin change permission and
// toolbar edit entry points.
func (e *Engine) IsUnlockedFor(ctx context.Context, versionID string, user version.User) (bool, error) {
	l, err := e.store.Get(ctx, versionID)
	if err != nil {
		return false, err
	}
	return l == nil || l.CreatedBy.Is(user), nil
}

// Acquire creates a lock on the version attributed to holder. If a lock
// already exists the call is a no-op: ownership is never reassigned by a
// re-entrant save, and a racer losing the insert observes the surviving lock
// as if it pre-existed.
func (e *Engine) Acquire(ctx context.Context, versionID string, holder version.User) error {
	var span trace.Span
	if e.traceEnabled {
		ctx, span = tracer.Start(ctx, "Engine.Acquire")
		defer span.End()
		span.SetAttributes(
			attribute.String("verlock.version", versionID),
			attribute.String("verlock.holder", holder.ID),
		)
	}

	_, err := e.store.Create(ctx, versionID, holder)
	if errors.Is(err, verrors.ErrLockExists) {
		metrics.ConflictCounter.Inc()
		return nil
	}
	if err != nil {
		return err
	}
	metrics.AcquireCounter.Inc()
	metrics.HeldGauge.Inc()
	if e.bus != nil {
		_ = e.bus.Publish(ctx, eventbus.NewEvent(eventbus.KindLocked, versionID, holder.ID, ""))
	}
	return nil
}

// Release removes the lock on the version, if any. Releasing an unlocked
// version is a no-op.
func (e *Engine) Release(ctx context.Context, versionID string) error {
	return e.release(ctx, versionID, version.User{})
}

// ReleaseBy is Release attributed to the user performing it, so unlock
// events can name who removed someone else's lock.
func (e *Engine) ReleaseBy(ctx context.Context, versionID string, by version.User) error {
	return e.release(ctx, versionID, by)
}

func (e *Engine) release(ctx context.Context, versionID string, by version.User) error {
	var span trace.Span
	if e.traceEnabled {
		ctx, span = tracer.Start(ctx, "Engine.Release")
		defer span.End()
		span.SetAttributes(attribute.String("verlock.version", versionID))
	}

	l, err := e.store.Get(ctx, versionID)
	if err != nil {
		return err
	}
	n, err := e.store.Delete(ctx, versionID)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	metrics.ReleaseCounter.Inc()
	metrics.HeldGauge.Dec()
	if e.bus != nil {
		holder := ""
		if l != nil {
			holder = l.CreatedBy.ID
		}
		_ = e.bus.Publish(ctx, eventbus.NewEvent(eventbus.KindUnlocked, versionID, holder, by.ID))
	}
	return nil
}

// LatestDraftLock resolves the lock held on the current latest draft sharing
// v's content grouping. Guards use it when the action target itself (a
// published or archived version) can never carry a lock, but an unresolved
// draft lock in the same grouping must still block the action. It returns
// nil if the grouping has no draft or the draft is unlocked.
func (e *Engine) LatestDraftLock(ctx context.Context, v *version.Version) (*store.Lock, error) {
	if e.repo == nil {
		return nil, nil
	}
	draft, err := e.repo.LatestDraft(ctx, v.Group)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, nil
	}
	return e.store.Get(ctx, draft.ID)
}
