package container

import (
	"fmt"
	"sync"

	"github.com/hupe1980/geostore/core"
)

// Memory is an in-memory Store backed by Go maps. It is the default
// container for new workspaces and the workhorse of the test suite.
type Memory struct {
	mu     sync.RWMutex
	attrs  map[entryKey][]byte
	arrays map[entryKey][]byte
}

type entryKey struct {
	uid  core.UID
	name string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		attrs:  make(map[entryKey][]byte),
		arrays: make(map[entryKey][]byte),
	}
}

// ReadAttribute implements Store.
func (m *Memory) ReadAttribute(uid core.UID, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.attrs[entryKey{uid, name}]
	if !ok {
		return nil, fmt.Errorf("attribute %q of %s: %w", name, uid, core.ErrNotFound)
	}
	return cloneBytes(v), nil
}

// WriteAttribute implements Store.
func (m *Memory) WriteAttribute(uid core.UID, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs[entryKey{uid, name}] = cloneBytes(value)
	return nil
}

// ReadArray implements Store.
func (m *Memory) ReadArray(uid core.UID, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.arrays[entryKey{uid, name}]
	if !ok {
		return nil, fmt.Errorf("array %q of %s: %w", name, uid, core.ErrNotFound)
	}
	return cloneBytes(v), nil
}

// ReadArrayRange implements Store.
func (m *Memory) ReadArrayRange(uid core.UID, name string, off, length int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.arrays[entryKey{uid, name}]
	if !ok {
		return nil, fmt.Errorf("array %q of %s: %w", name, uid, core.ErrNotFound)
	}
	if off < 0 || length < 0 || off+length > int64(len(v)) {
		return nil, fmt.Errorf("array %q of %s: range [%d:%d) out of bounds (len %d): %w",
			name, uid, off, off+length, len(v), core.ErrValue)
	}
	return cloneBytes(v[off : off+length]), nil
}

// WriteArray implements Store.
func (m *Memory) WriteArray(uid core.UID, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arrays[entryKey{uid, name}] = cloneBytes(data)
	return nil
}

// DeleteEntity implements Store.
func (m *Memory) DeleteEntity(uid core.UID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.attrs {
		if k.uid == uid {
			delete(m.attrs, k)
		}
	}
	for k := range m.arrays {
		if k.uid == uid {
			delete(m.arrays, k)
		}
	}
	return nil
}

// Flush implements Store. It is a no-op for the memory backend.
func (m *Memory) Flush() error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
