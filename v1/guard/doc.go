// Package guard gates versioning actions on lock state. Guards never fail
// for a missing lock; they deny only when a lock exists and belongs to a
// different user. The explicit unlock operation is the one exception to the
// ownership rule: it requires its own permission instead.
package guard
