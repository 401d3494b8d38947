package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrLockExists is returned by a store when a lock row already exists
	// for the version. The engine recovers it as idempotent success.
	ErrLockExists = errors.New("verlock: lock already exists")

	// ErrNotDraft is returned when an operation only applicable to draft
	// versions targets a version in another state.
	ErrNotDraft = errors.New("verlock: version is not a draft")

	// ErrPermissionDenied is returned when the caller lacks the distinct
	// unlock permission. Holding the lock is not a substitute for it.
	ErrPermissionDenied = errors.New("verlock: missing permission to remove the version lock")

	// ErrTimeout is returned when a store operation exceeds its deadline.
	ErrTimeout = errors.New("verlock: timeout")
)

// LockedError is the denial raised by guards when a lock exists and is held
// by someone other than the requesting user. It carries the holder so callers
// can name them in user-facing messages.
type LockedError struct {
	HolderID   string
	HolderName string
}

func (e *LockedError) Error() string {
	name := e.HolderName
	if name == "" {
		name = e.HolderID
	}
	return fmt.Sprintf("verlock: locked by %s", name)
}

// IsLocked reports whether err is a LockedError.
func IsLocked(err error) bool {
	var le *LockedError
	return errors.As(err, &le)
}
