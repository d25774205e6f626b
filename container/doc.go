// Package container abstracts the physical binary container a store
// persists into.
//
// The object model consumes it as an opaque key-value/array store: every
// attribute and array is addressed by (entity uid, name). A backend must
// distinguish "not present" (core.ErrNotFound, normal on first-time
// creation) from an I/O failure (fatal, always propagated).
//
// # Built-in Implementations
//
//   - Memory: map-backed store for tests and scratch sessions
//   - File: single binary file with per-block compression, CRC32
//     checksums and an mmap read path
//   - Badger: a BadgerDB-backed store for very large sessions
//
// # Custom Implementations
//
// Implement the Store interface to support custom containers:
//
//	type Store interface {
//	    ReadAttribute(uid, name) ([]byte, error)
//	    WriteAttribute(uid, name, value) error
//	    ReadArray(uid, name) ([]byte, error)
//	    ReadArrayRange(uid, name, off, length) ([]byte, error)
//	    WriteArray(uid, name, data) error
//	    Flush() error
//	    Close() error
//	}
package container
