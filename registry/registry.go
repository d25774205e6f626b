package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hupe1980/geostore/core"
)

// Entity is the minimal surface the registry needs from a registered
// node. The concrete variants live in the geometry, data and concat
// packages.
type Entity interface {
	// UID returns the entity identifier, core.NilUID before assignment.
	UID() core.UID
	// SetUID assigns the identifier. Called once by the registry.
	SetUID(core.UID)
	// Name returns the display name (not unique).
	Name() string
	// TypeUID returns the identifier of the entity's type, or
	// core.NilUID for entities without a shared type.
	TypeUID() core.UID
}

// Registry tracks every live entity and entity type of one open store.
//
// Slots are non-owning: each Handle holds one reference, and a slot is
// evicted deterministically when its count reaches zero. A store opened
// against a large file cannot materialize every entity eagerly, so
// liveness is coupled to handle reachability instead of explicit
// close calls.
//
// All state is scoped to the Registry instance; there are no process
// singletons.
type Registry struct {
	mu       sync.RWMutex
	log      *slog.Logger
	entities map[core.UID]*slot
	types    map[core.UID]*typeSlot
}

type slot struct {
	ent      Entity
	refs     int
	typeHeld bool // slot holds one reference on the entity's type
}

type typeSlot struct {
	typ  *EntityType
	refs int
}

// New creates an empty registry.
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		log:      log,
		entities: make(map[core.UID]*slot),
		types:    make(map[core.UID]*typeSlot),
	}
}

// Register stores ent as the canonical instance for its uid and returns
// an owning handle. A nil uid is assigned; a non-nil uid is validated:
// registering a second distinct instance under a live uid is a fatal
// identity violation. Registering the same instance again just adds a
// reference.
//
// The slot holds one reference on the entity's type, released
// transitively on eviction. An entity registered before its type takes
// that reference when the type registers.
func (r *Registry) Register(ent Entity) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid := ent.UID()
	if uid == core.NilUID {
		uid = core.NewUID()
		ent.SetUID(uid)
	}

	if s, ok := r.entities[uid]; ok {
		if s.ent != ent {
			return nil, fmt.Errorf("uid %s already bound to a distinct instance: %w",
				uid, core.ErrIdentity)
		}
		s.refs++
		return &Handle{reg: r, uid: uid}, nil
	}

	s := &slot{ent: ent, refs: 1}
	if tid := ent.TypeUID(); tid != core.NilUID {
		if ts, ok := r.types[tid]; ok {
			ts.refs++
			s.typeHeld = true
		}
	}
	r.entities[uid] = s
	return &Handle{reg: r, uid: uid}, nil
}

// Find resolves uid to its canonical live instance. It never constructs
// a duplicate: either the registered instance is returned (with a new
// reference) or ok is false.
func (r *Registry) Find(uid core.UID) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entities[uid]
	if !ok {
		return nil, false
	}
	s.refs++
	return &Handle{reg: r, uid: uid}, true
}

// Resolve returns the live instance for uid without adding a
// reference. The pointer is only valid while something else pins the
// slot (a handle or the parent tree).
func (r *Registry) Resolve(uid core.UID) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.entities[uid]
	if !ok {
		return nil, false
	}
	return s.ent, true
}

// Len returns the number of live entity slots.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// FindOrCreateType returns the type singleton for uid, creating it via
// create on first use. The returned handle owns one reference.
func (r *Registry) FindOrCreateType(uid core.UID, create func() *EntityType) (*TypeHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ts, ok := r.types[uid]; ok {
		ts.refs++
		return &TypeHandle{reg: r, uid: uid}, nil
	}

	typ := create()
	if typ == nil {
		return nil, fmt.Errorf("type factory for %s returned nil: %w", uid, core.ErrValue)
	}
	if typ.uid == core.NilUID {
		typ.uid = uid
	}
	if typ.uid != uid {
		return nil, fmt.Errorf("type factory for %s produced uid %s: %w",
			uid, typ.uid, core.ErrIdentity)
	}

	ts := &typeSlot{typ: typ, refs: 1}
	// Entities registered before their type now take their reference,
	// so transitive release does not depend on registration order.
	for _, s := range r.entities {
		if s.ent.TypeUID() == uid && !s.typeHeld {
			ts.refs++
			s.typeHeld = true
		}
	}
	r.types[uid] = ts
	return &TypeHandle{reg: r, uid: uid}, nil
}

// FindType resolves a live type uid to its singleton, adding a
// reference on success.
func (r *Registry) FindType(uid core.UID) (*TypeHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.types[uid]
	if !ok {
		return nil, false
	}
	ts.refs++
	return &TypeHandle{reg: r, uid: uid}, true
}

func (r *Registry) releaseEntity(uid core.UID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entities[uid]
	if !ok {
		return
	}
	s.refs--
	if s.refs > 0 {
		return
	}

	delete(r.entities, uid)
	r.log.Debug("evicted entity", slog.String("uid", uid.String()))

	// Transitive release of the exclusively-owned type.
	if s.typeHeld {
		r.releaseTypeLocked(s.ent.TypeUID())
	}
}

func (r *Registry) releaseType(uid core.UID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseTypeLocked(uid)
}

func (r *Registry) releaseTypeLocked(uid core.UID) {
	ts, ok := r.types[uid]
	if !ok {
		return
	}
	ts.refs--
	if ts.refs > 0 {
		return
	}
	delete(r.types, uid)
	r.log.Debug("evicted entity type", slog.String("uid", uid.String()))
}
