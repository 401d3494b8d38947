package guard

import (
	"context"

	"github.com/mirkobrombin/go-verlock/v1/engine"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

// ChildLister resolves the moderated children of a version in the host
// system's content hierarchy.
type ChildLister interface {
	Children(ctx context.Context, v *version.Version) ([]*version.Version, error)
}

// Collection is a batch of versions gathered for a review workflow,
// attributed to the user assembling it.
type Collection struct {
	Author   version.User
	versions []*version.Version
}

// NewCollection returns an empty Collection owned by author.
func NewCollection(author version.User) *Collection {
	return &Collection{Author: author}
}

// Versions returns the versions added so far, in traversal order.
func (c *Collection) Versions() []*version.Version {
	return append([]*version.Version(nil), c.versions...)
}

// Collector adds versions and their descendants to a moderation collection,
// excluding anything locked by a user other than the collection author.
type Collector struct {
	engine   *engine.Engine
	children ChildLister
}

// NewCollector returns a Collector. children may be nil for flat content
// with no hierarchy.
func NewCollector(e *engine.Engine, children ChildLister) *Collector {
	return &Collector{engine: e, children: children}
}

// Add inserts v and, recursively, its moderated descendants into col. A
// version locked by someone other than col.Author is skipped together with
// its entire subtree; traversal descends into unlocked children only. It
// returns the number of versions added.
func (c *Collector) Add(ctx context.Context, col *Collection, v *version.Version) (int, error) {
	unlocked, err := c.engine.IsUnlockedFor(ctx, v.ID, col.Author)
	if err != nil {
		return 0, err
	}
	if !unlocked {
		return 0, nil
	}

	col.versions = append(col.versions, v)
	added := 1
	if c.children == nil {
		return added, nil
	}

	kids, err := c.children.Children(ctx, v)
	if err != nil {
		return added, err
	}
	for _, kid := range kids {
		n, err := c.Add(ctx, col, kid)
		if err != nil {
			return added + n, err
		}
		added += n
	}
	return added, nil
}
