package geostore

import (
	"github.com/hupe1980/geostore/core"
)

// Error sentinels re-exported from core so callers can classify
// failures without importing the internal taxonomy package.
var (
	// ErrShape is returned for array rank/dimension mismatches.
	ErrShape = core.ErrShape

	// ErrType is returned for wrong element types.
	ErrType = core.ErrType

	// ErrValue is returned for out-of-range indices, duplicate group
	// names and channel-count mismatches.
	ErrValue = core.ErrValue

	// ErrIdentity is returned for uid collisions across distinct
	// instances and type mismatches on lookup.
	ErrIdentity = core.ErrIdentity

	// ErrNotFound is returned when an entity, attribute or array does
	// not exist. Container backends return it for "not present", which
	// is distinct from an I/O failure.
	ErrNotFound = core.ErrNotFound
)
