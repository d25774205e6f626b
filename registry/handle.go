package registry

import (
	"sync/atomic"

	"github.com/hupe1980/geostore/core"
)

// Handle is an owning reference to a registered entity. Releasing the
// last handle for a uid evicts the slot; a released handle no longer
// resolves.
type Handle struct {
	reg      *Registry
	uid      core.UID
	released atomic.Bool
}

// UID returns the identifier the handle refers to.
func (h *Handle) UID() core.UID { return h.uid }

// Entity returns the referenced instance, or nil after Release.
func (h *Handle) Entity() Entity {
	if h.released.Load() {
		return nil
	}
	h.reg.mu.RLock()
	defer h.reg.mu.RUnlock()
	s, ok := h.reg.entities[h.uid]
	if !ok {
		return nil
	}
	return s.ent
}

// Release drops this reference. Idempotent.
func (h *Handle) Release() {
	if h == nil || h.released.Swap(true) {
		return
	}
	h.reg.releaseEntity(h.uid)
}

// TypeHandle is an owning reference to a registered entity type.
type TypeHandle struct {
	reg      *Registry
	uid      core.UID
	released atomic.Bool
}

// UID returns the type identifier.
func (h *TypeHandle) UID() core.UID { return h.uid }

// Type returns the referenced singleton, or nil after Release.
func (h *TypeHandle) Type() *EntityType {
	if h.released.Load() {
		return nil
	}
	h.reg.mu.RLock()
	defer h.reg.mu.RUnlock()
	ts, ok := h.reg.types[h.uid]
	if !ok {
		return nil
	}
	return ts.typ
}

// Release drops this reference. Idempotent.
func (h *TypeHandle) Release() {
	if h == nil || h.released.Swap(true) {
		return
	}
	h.reg.releaseType(h.uid)
}
