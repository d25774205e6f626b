package data

import (
	"fmt"
	"sync"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
)

// CacheState tracks the lazy value cache of a Data entity.
type CacheState uint8

const (
	// CacheUnloaded means values have never been fetched.
	CacheUnloaded CacheState = iota
	// CacheLoaded means the in-memory array is authoritative.
	CacheLoaded
	// CacheInvalidated means a cardinality-changing mutation cleared
	// the cache; the next read fetches again.
	CacheInvalidated
)

// valuesArrayName is the container array name the values persist under.
const valuesArrayName = "Values"

// Data is a per-element value array attached to a geometric object or
// group. Values are fetched from the container on first access and
// cached until a mutation invalidates them.
type Data struct {
	uid     core.UID
	typeUID core.UID
	name    string
	assoc   core.Association
	kind    core.PrimitiveKind
	parent  core.UID
	store   container.Store

	mu     sync.Mutex
	state  CacheState
	values Values
}

// DataOption configures NewData.
type DataOption func(*Data)

// WithTypeUID binds the data to a shared entity type.
func WithTypeUID(uid core.UID) DataOption {
	return func(d *Data) { d.typeUID = uid }
}

// WithStore attaches the container the values lazily load from.
func WithStore(s container.Store) DataOption {
	return func(d *Data) { d.store = s }
}

// WithParent records the owning entity.
func WithParent(uid core.UID) DataOption {
	return func(d *Data) { d.parent = uid }
}

// NewData creates a data entity holding values in memory.
func NewData(name string, assoc core.Association, values Values, opts ...DataOption) *Data {
	d := &Data{
		name:  name,
		assoc: assoc,
	}
	for _, opt := range opts {
		opt(d)
	}
	if values != nil {
		d.values = values
		d.kind = values.Kind()
		d.state = CacheLoaded
	}
	return d
}

// NewUnloadedData creates a data entity whose values still live in the
// container. kind must match the persisted array.
func NewUnloadedData(uid core.UID, name string, assoc core.Association, kind core.PrimitiveKind, store container.Store) *Data {
	return &Data{
		uid:   uid,
		name:  name,
		assoc: assoc,
		kind:  kind,
		store: store,
		state: CacheUnloaded,
	}
}

// UID implements registry.Entity.
func (d *Data) UID() core.UID { return d.uid }

// SetUID implements registry.Entity.
func (d *Data) SetUID(uid core.UID) { d.uid = uid }

// Name implements registry.Entity.
func (d *Data) Name() string { return d.name }

// TypeUID implements registry.Entity.
func (d *Data) TypeUID() core.UID { return d.typeUID }

// Association returns the index space the values are keyed on.
func (d *Data) Association() core.Association { return d.assoc }

// PrimitiveKind returns the value semantics.
func (d *Data) PrimitiveKind() core.PrimitiveKind { return d.kind }

// Parent returns the owning entity uid.
func (d *Data) Parent() core.UID { return d.parent }

// SetParent rebinds the owning entity uid.
func (d *Data) SetParent(uid core.UID) { d.parent = uid }

// State returns the cache state.
func (d *Data) State() CacheState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Values returns the value array, fetching it from the container on
// first access (and after invalidation). Repeated reads return the
// cached array.
func (d *Data) Values() (Values, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.valuesLocked()
}

func (d *Data) valuesLocked() (Values, error) {
	if d.state == CacheLoaded {
		return d.values, nil
	}
	if d.store == nil {
		return nil, fmt.Errorf("data %q has no values and no container: %w", d.name, core.ErrNotFound)
	}
	raw, err := d.store.ReadArray(d.uid, valuesArrayName)
	if err != nil {
		return nil, err
	}
	vals, err := DecodeValues(raw)
	if err != nil {
		return nil, fmt.Errorf("data %q: %w", d.name, err)
	}
	d.values = vals
	d.kind = vals.Kind()
	d.state = CacheLoaded
	return vals, nil
}

// Preload forces the values into memory. Structural mutations call it
// before re-indexing so no later fetch can use stale indices.
func (d *Data) Preload() error {
	_, err := d.Values()
	return err
}

// SetValues replaces the in-memory array.
func (d *Data) SetValues(v Values) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values = v
	if v != nil {
		d.kind = v.Kind()
	}
	d.state = CacheLoaded
}

// Invalidate clears the cached array; the next read fetches from the
// container again.
func (d *Data) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values = nil
	d.state = CacheInvalidated
}

// RemoveRows drops the rows at indices from the cached values. The
// caller must have preloaded the values; out-of-range indices fail
// with core.ErrValue before any change.
func (d *Data) RemoveRows(indices []int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	vals, err := d.valuesLocked()
	if err != nil {
		return err
	}
	next, err := RemoveRows(vals, indices)
	if err != nil {
		return fmt.Errorf("data %q: %w", d.name, err)
	}
	d.values = next
	return nil
}

// ApplyMask replaces the cached values with the masked subset.
func (d *Data) ApplyMask(keep []bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	vals, err := d.valuesLocked()
	if err != nil {
		return err
	}
	d.values = vals.Mask(keep)
	return nil
}

// Copy returns a detached copy under parent, optionally sub-sampled by
// keep (nil copies all values).
func (d *Data) Copy(parent core.UID, keep []bool) (*Data, error) {
	vals, err := d.Values()
	if err != nil {
		return nil, err
	}
	if keep != nil {
		vals = vals.Mask(keep)
	}
	out := NewData(d.name, d.assoc, vals, WithTypeUID(d.typeUID), WithStore(d.store), WithParent(parent))
	return out, nil
}

// Save writes the entity attributes and the value array to the store.
func (d *Data) Save(store container.Store) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.uid == core.NilUID {
		return fmt.Errorf("data %q has no uid: %w", d.name, core.ErrIdentity)
	}

	if err := store.WriteAttribute(d.uid, "Name", []byte(d.name)); err != nil {
		return err
	}
	if err := store.WriteAttribute(d.uid, "Association", []byte(d.assoc.String())); err != nil {
		return err
	}
	if err := store.WriteAttribute(d.uid, "PrimitiveKind", []byte{byte(d.kind)}); err != nil {
		return err
	}

	if d.state != CacheLoaded {
		return nil // nothing in memory to write back
	}
	raw, err := EncodeValues(d.values)
	if err != nil {
		return err
	}
	return store.WriteArray(d.uid, valuesArrayName, raw)
}
