// Package store persists version locks. A lock maps a version identity to
// the user holding it; the uniqueness of the version key is the only
// concurrency mechanism the locking layer relies on. In-memory, GORM and
// Redis backends are provided.
package store
