package container

import (
	"github.com/hupe1980/geostore/core"
)

// Store is the physical container behind a workspace.
//
// Values are raw bytes; the object model owns the encoding. A missing
// key yields an error satisfying errors.Is(err, core.ErrNotFound); any
// other error is an I/O failure and must be treated as fatal.
type Store interface {
	// ReadAttribute returns the value of a named attribute of an entity.
	ReadAttribute(uid core.UID, name string) ([]byte, error)

	// WriteAttribute sets the value of a named attribute of an entity.
	WriteAttribute(uid core.UID, name string, value []byte) error

	// ReadArray returns a full named array of an entity.
	ReadArray(uid core.UID, name string) ([]byte, error)

	// ReadArrayRange returns length bytes of a named array starting at
	// off. Backends may satisfy it by reading the full array, but the
	// file backend serves it without materializing the whole buffer.
	ReadArrayRange(uid core.UID, name string, off, length int64) ([]byte, error)

	// WriteArray replaces a full named array of an entity.
	WriteArray(uid core.UID, name string, data []byte) error

	// DeleteEntity drops every attribute and array stored under uid.
	DeleteEntity(uid core.UID) error

	// Flush persists all pending writes.
	Flush() error

	// Close flushes and releases the container.
	Close() error
}
