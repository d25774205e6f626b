package core

import (
	"github.com/google/uuid"
)

// UID is the 128-bit identifier of an entity or entity type.
// It is globally unique within a store and persists in its canonical
// textual form ("xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx").
type UID = uuid.UUID

// NilUID is the zero identifier. No registered entity ever carries it.
var NilUID = uuid.Nil

// NewUID returns a fresh random (version 4) identifier.
func NewUID() UID {
	return uuid.New()
}

// ParseUID parses the canonical textual form of a UID.
func ParseUID(s string) (UID, error) {
	return uuid.Parse(s)
}

// MustUID parses s and panics on failure. Intended for the well-known
// type identifiers declared at package init time.
func MustUID(s string) UID {
	return uuid.MustParse(s)
}
