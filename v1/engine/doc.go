// Package engine implements the version lock state machine. A draft version
// is locked by its author on save and unlocked when it leaves the draft
// state; acquire is idempotent and never reassigns ownership, so the only way
// a lock changes hands is an explicit release followed by a fresh acquire.
package engine
