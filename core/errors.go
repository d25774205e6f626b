package core

import "errors"

// Shared error sentinels. Packages wrap these with context via %w so
// callers can classify failures with errors.Is regardless of which
// layer raised them.
var (
	// ErrShape is returned for array rank or dimension mismatches.
	ErrShape = errors.New("shape mismatch")

	// ErrType is returned for wrong element types, e.g. non-integer
	// cell indices.
	ErrType = errors.New("type mismatch")

	// ErrValue is returned for out-of-range indices, duplicate group
	// names and channel-count mismatches.
	ErrValue = errors.New("invalid value")

	// ErrIdentity is returned when two distinct in-memory instances
	// collide on one uid, or a lookup resolves to the wrong type.
	ErrIdentity = errors.New("identity violation")

	// ErrNotFound is returned when the container has no value for an
	// attribute or array. First-time creation paths must treat this as
	// "not present", never as an I/O failure.
	ErrNotFound = errors.New("not found")
)
