package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	verrors "github.com/mirkobrombin/go-verlock/v1/errors"
	"github.com/mirkobrombin/go-verlock/v1/version"
)

// Lock is the persistent record asserting that a version is claimed for
// editing by a user. Rows are immutable: ownership changes only by deleting
// the row and creating a new one.
type Lock struct {
	ID        string
	VersionID string
	CreatedBy version.User
	Created   time.Time
}

// Store is the durable mapping from a version identity to its lock. A version
// has at most one lock; the uniqueness of VersionID is the store's sole
// concurrency-correctness mechanism.
type Store interface {
	// Get returns the lock for the version, or nil if none exists. Absence
	// is a normal state, never an error.
	Get(ctx context.Context, versionID string) (*Lock, error)
	// Create atomically inserts a lock for the version, attributed to holder.
	// It returns errors.ErrLockExists if a lock is already present.
	// Implementations must rely on an atomic insert-if-absent, not a
	// read-then-write sequence.
	Create(ctx context.Context, versionID string, holder version.User) (*Lock, error)
	// Delete removes the lock for the version and returns how many rows were
	// removed. Deleting a non-existent lock returns 0, never an error.
	Delete(ctx context.Context, versionID string) (int64, error)
}

// InMemory is a Store backed by a map, mainly for tests and single-process
// deployments.
type InMemory struct {
	mu    sync.Mutex
	locks map[string]*Lock
}

// NewInMemory returns a new InMemory store.
func NewInMemory() *InMemory {
	return &InMemory{locks: make(map[string]*Lock)}
}

// Get implements Store.Get.
func (s *InMemory) Get(ctx context.Context, versionID string) (*Lock, error) {
	s.mu.Lock()
	l, ok := s.locks[versionID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// Create implements Store.Create. The check and insert happen under one
// mutex hold, so concurrent callers cannot both succeed.
func (s *InMemory) Create(ctx context.Context, versionID string, holder version.User) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[versionID]; ok {
		return nil, verrors.ErrLockExists
	}
	l := &Lock{
		ID:        uuid.NewString(),
		VersionID: versionID,
		CreatedBy: holder,
		Created:   time.Now(),
	}
	s.locks[versionID] = l
	cp := *l
	return &cp, nil
}

// Delete implements Store.Delete.
func (s *InMemory) Delete(ctx context.Context, versionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locks[versionID]; !ok {
		return 0, nil
	}
	delete(s.locks, versionID)
	return 1, nil
}
