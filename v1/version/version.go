package version

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a version.
type State string

const (
	StateDraft       State = "draft"
	StatePublished   State = "published"
	StateUnpublished State = "unpublished"
	StateArchived    State = "archived"
	StateDiscarded   State = "discarded"
)

// Editable reports whether the state allows edits. Draft is the only
// editable state and the only state in which a lock may exist.
func (s State) Editable() bool {
	return s == StateDraft
}

// User identifies the person performing or owning an edit. Identity is
// compared by ID; Name and Email are carried for messaging only.
type User struct {
	ID    string
	Name  string
	Email string
}

// Is reports whether two users are the same identity.
func (u User) Is(other User) bool {
	return u.ID == other.ID
}

// Version is the narrow projection of the host versioning system's version
// entity that the locking layer needs: identity, lifecycle state, current
// author and the grouping key tying together the history of one piece of
// content.
type Version struct {
	ID      string
	Group   string
	State   State
	Author  User
	Created time.Time
}

// Repository resolves versions from the host versioning system.
type Repository interface {
	// LatestDraft returns the most recent draft version in the given content
	// grouping, or nil if the grouping currently has no draft.
	LatestDraft(ctx context.Context, group string) (*Version, error)
}

// Saver persists a version through the host versioning system. The locking
// layer wraps it so lock state is kept consistent on every save.
type Saver interface {
	Save(ctx context.Context, v *Version) error
}

// Copy returns a new draft version derived from v, attributed to by. This is
// how an editor claims a draft: the copy carries the copier as author, so the
// save hook locks it for the copier rather than the original author.
func Copy(v *Version, by User) *Version {
	return &Version{
		ID:      uuid.NewString(),
		Group:   v.Group,
		State:   StateDraft,
		Author:  by,
		Created: time.Now(),
	}
}
