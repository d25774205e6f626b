package concat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

// Concatenator is a parent entity that packs the per-attribute arrays
// of many small children (e.g. thousands of drillhole interval
// datasets) into few shared contiguous buffers, one per (attribute
// name, primitive kind) class, plus an index map keyed by child uid.
//
// Children are not registered as top-level entities; they are
// addressable only through ObjectIDs.
//
// Writes are append-only: a new attribute is allocated at the current
// buffer tail. Detaching a child removes its descriptors but never
// reclaims slices; Compact is the explicit whole-buffer rewrite.
type Concatenator struct {
	uid     core.UID
	typeUID core.UID
	name    string
	parent  core.UID
	store   container.Store
	log     *slog.Logger

	mu         sync.RWMutex
	objectIDs  []core.UID
	groupIDs   []core.UID
	attributes map[string]Attribute
	buffers    map[string]*buffer
	objects    map[core.UID]*Object

	sf    singleflight.Group
	cache map[string]data.Values
}

// buffer is one shared packed buffer. Contents stay on disk until an
// append or compaction needs the whole thing.
type buffer struct {
	kind   core.PrimitiveKind
	data   []byte
	length int64 // logical tail, valid even while data is unloaded
	loaded bool
	dirty  bool
}

// ConcatenatorTypeUID is the well-known type identifier of
// concatenator groups.
var ConcatenatorTypeUID = core.MustUID("825424fb-c2c6-4fea-9f2b-6cd00023d393")

// ConcatenatorOption configures New.
type ConcatenatorOption func(*Concatenator)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) ConcatenatorOption {
	return func(c *Concatenator) { c.log = log }
}

// WithParent records the owning entity.
func WithParent(uid core.UID) ConcatenatorOption {
	return func(c *Concatenator) { c.parent = uid }
}

// WithUID pins the entity identifier.
func WithUID(uid core.UID) ConcatenatorOption {
	return func(c *Concatenator) { c.uid = uid }
}

// New creates an empty concatenator bound to a container.
func New(name string, store container.Store, opts ...ConcatenatorOption) *Concatenator {
	c := &Concatenator{
		uid:        core.NewUID(),
		typeUID:    ConcatenatorTypeUID,
		name:       name,
		store:      store,
		log:        slog.New(slog.DiscardHandler),
		attributes: make(map[string]Attribute),
		buffers:    make(map[string]*buffer),
		objects:    make(map[core.UID]*Object),
		cache:      make(map[string]data.Values),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UID implements registry.Entity.
func (c *Concatenator) UID() core.UID { return c.uid }

// SetUID implements registry.Entity.
func (c *Concatenator) SetUID(uid core.UID) { c.uid = uid }

// Name implements registry.Entity.
func (c *Concatenator) Name() string { return c.name }

// TypeUID implements registry.Entity.
func (c *Concatenator) TypeUID() core.UID { return c.typeUID }

// Parent returns the owning entity uid.
func (c *Concatenator) Parent() core.UID { return c.parent }

// ObjectIDs returns the ordered identifiers of the packed children.
func (c *Concatenator) ObjectIDs() []core.UID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.UID, len(c.objectIDs))
	copy(out, c.objectIDs)
	return out
}

// PropertyGroupIDs returns the identifiers of the attached property
// groups.
func (c *Concatenator) PropertyGroupIDs() []core.UID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.UID, len(c.groupIDs))
	copy(out, c.groupIDs)
	return out
}

// AddPropertyGroupID attaches a property group identifier.
func (c *Concatenator) AddPropertyGroupID(uid core.UID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.groupIDs {
		if g == uid {
			return
		}
	}
	c.groupIDs = append(c.groupIDs, uid)
}

// Attributes returns a copy of the attributes mapping.
func (c *Concatenator) Attributes() map[string]Attribute {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Attribute, len(c.attributes))
	for k, v := range c.attributes {
		out[k] = v
	}
	return out
}

// SetLiteral records a literal (non-packed) attribute value for a
// child.
func (c *Concatenator) SetLiteral(child core.UID, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attributes[attrKey(name, child)] = Attribute{Literal: raw}
	return nil
}

// Literal decodes the literal attribute value of a child into out.
func (c *Concatenator) Literal(child core.UID, name string, out any) error {
	c.mu.RLock()
	attr, ok := c.attributes[attrKey(name, child)]
	c.mu.RUnlock()
	if !ok || attr.Literal == nil {
		return fmt.Errorf("literal %q of %s: %w", name, child, core.ErrNotFound)
	}
	return json.Unmarshal(attr.Literal, out)
}

// AppendAttribute packs a child's value array at the tail of the
// shared buffer for its (name, kind) class and records the slice
// descriptor. Overwriting an existing descriptor leaves the old slice
// in place as a dead region.
func (c *Concatenator) AppendAttribute(child core.UID, name string, vals data.Values) error {
	blob, err := data.EncodeValues(vals)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	bkey := bufferKey(name, vals.Kind())
	buf, ok := c.buffers[bkey]
	if !ok {
		buf = &buffer{kind: vals.Kind(), loaded: true}
		c.buffers[bkey] = buf
	}
	if !buf.loaded {
		if err := c.loadBufferLocked(bkey, buf); err != nil {
			return err
		}
	}

	key := attrKey(name, child)
	c.attributes[key] = Attribute{Slice: &SliceDescriptor{
		Buffer: bkey,
		Offset: buf.length,
		Length: int64(len(blob)),
	}}
	buf.data = append(buf.data, blob...)
	buf.length += int64(len(blob))
	buf.dirty = true
	delete(c.cache, key)
	return nil
}

// Attribute materializes the packed value array of one child. Only the
// child's slice is read; the materialized slice is cached and repeated
// concurrent reads are deduplicated.
func (c *Concatenator) Attribute(child core.UID, name string) (data.Values, error) {
	key := attrKey(name, child)

	c.mu.RLock()
	if vals, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return vals, nil
	}
	attr, ok := c.attributes[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("attribute %q of %s: %w", name, child, core.ErrNotFound)
	}
	if attr.Slice == nil {
		return nil, fmt.Errorf("attribute %q of %s is a literal, not a packed array: %w",
			name, child, core.ErrType)
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		c.mu.RLock()
		if vals, ok := c.cache[key]; ok {
			c.mu.RUnlock()
			return vals, nil
		}
		desc := *attr.Slice
		buf, bufOK := c.buffers[desc.Buffer]
		var inMemory []byte
		if bufOK && buf.loaded {
			inMemory = buf.data[desc.Offset : desc.Offset+desc.Length]
		}
		c.mu.RUnlock()

		var blob []byte
		if inMemory != nil {
			blob = inMemory
		} else {
			raw, err := c.store.ReadArrayRange(c.uid, bufferArrayPrefix+desc.Buffer,
				desc.Offset, desc.Length)
			if err != nil {
				return nil, err
			}
			blob = raw
		}

		vals, err := data.DecodeValues(blob)
		if err != nil {
			return nil, fmt.Errorf("attribute %q of %s: %w", name, child, err)
		}

		c.mu.Lock()
		c.cache[key] = vals
		c.mu.Unlock()
		return vals, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(data.Values), nil
}

// Detach removes a child from the concatenator: its identifier leaves
// ObjectIDs and its attribute descriptors are dropped. The packed
// slices are deliberately not reclaimed; partial in-place shifts would
// invalidate concurrently cached descriptors. Use Compact to rewrite
// the buffers.
func (c *Concatenator) Detach(child core.UID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.objectIDs[:0]
	for _, id := range c.objectIDs {
		if id != child {
			ids = append(ids, id)
		}
	}
	c.objectIDs = ids
	delete(c.objects, child)

	suffix := ":" + child.String()
	for key := range c.attributes {
		if strings.HasSuffix(key, suffix) {
			delete(c.attributes, key)
			delete(c.cache, key)
		}
	}
}

// Compact rewrites every shared buffer to hold only the slices still
// referenced by a descriptor, reassigning all surviving descriptors
// atomically. Descriptor order within a buffer follows the sorted
// attribute keys, so compaction is deterministic.
func (c *Concatenator) Compact() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.attributes))
	for key, attr := range c.attributes {
		if attr.Slice != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	// Stage everything first; swap only after every read succeeded.
	newBuffers := make(map[string]*buffer)
	newDescs := make(map[string]*SliceDescriptor)

	for _, key := range keys {
		desc := c.attributes[key].Slice
		old, ok := c.buffers[desc.Buffer]
		if !ok {
			return fmt.Errorf("attribute %q references unknown buffer %q: %w",
				key, desc.Buffer, core.ErrValue)
		}

		var blob []byte
		if old.loaded {
			blob = old.data[desc.Offset : desc.Offset+desc.Length]
		} else {
			raw, err := c.store.ReadArrayRange(c.uid, bufferArrayPrefix+desc.Buffer,
				desc.Offset, desc.Length)
			if err != nil {
				return err
			}
			blob = raw
		}

		nb, ok := newBuffers[desc.Buffer]
		if !ok {
			nb = &buffer{kind: old.kind, loaded: true, dirty: true}
			newBuffers[desc.Buffer] = nb
		}
		newDescs[key] = &SliceDescriptor{
			Buffer: desc.Buffer,
			Offset: nb.length,
			Length: int64(len(blob)),
		}
		nb.data = append(nb.data, blob...)
		nb.length += int64(len(blob))
	}

	c.buffers = newBuffers
	for key, desc := range newDescs {
		c.attributes[key] = Attribute{Slice: desc}
	}
	c.log.Debug("compacted concatenator buffers",
		slog.String("uid", c.uid.String()),
		slog.Int("buffers", len(newBuffers)))
	return nil
}

// loadBufferLocked pulls a persisted buffer fully into memory.
func (c *Concatenator) loadBufferLocked(key string, buf *buffer) error {
	raw, err := c.store.ReadArray(c.uid, bufferArrayPrefix+key)
	if err != nil {
		return err
	}
	buf.data = raw
	buf.length = int64(len(raw))
	buf.loaded = true
	return nil
}

// Save persists the attributes mapping, the id lists and every dirty
// buffer. The mapping is one structured attribute on the concatenator,
// not per-child datasets.
func (c *Concatenator) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rawAttrs, err := json.Marshal(c.attributes)
	if err != nil {
		return err
	}
	if err := c.store.WriteAttribute(c.uid, attributesAttrName, rawAttrs); err != nil {
		return err
	}

	rawIDs, err := json.Marshal(c.objectIDs)
	if err != nil {
		return err
	}
	if err := c.store.WriteAttribute(c.uid, objectIDsAttrName, rawIDs); err != nil {
		return err
	}

	rawGroups, err := json.Marshal(c.groupIDs)
	if err != nil {
		return err
	}
	if err := c.store.WriteAttribute(c.uid, groupIDsAttrName, rawGroups); err != nil {
		return err
	}

	for key, buf := range c.buffers {
		if !buf.dirty {
			continue
		}
		if err := c.store.WriteArray(c.uid, bufferArrayPrefix+key, buf.data); err != nil {
			return err
		}
		buf.dirty = false
	}

	// Names of objects live as literals; nothing else to write here.
	if err := c.store.WriteAttribute(c.uid, "Name", []byte(c.name)); err != nil {
		return err
	}
	return c.store.WriteAttribute(c.uid, "TypeID", []byte(c.typeUID.String()))
}

// Load restores a concatenator persisted under uid. Buffers stay on
// disk until an attribute read or append needs them.
func Load(store container.Store, uid core.UID, opts ...ConcatenatorOption) (*Concatenator, error) {
	c := New("", store, opts...)
	c.uid = uid

	if name, err := store.ReadAttribute(uid, "Name"); err == nil {
		c.name = string(name)
	}

	rawAttrs, err := store.ReadAttribute(uid, attributesAttrName)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawAttrs, &c.attributes); err != nil {
		return nil, err
	}

	rawIDs, err := store.ReadAttribute(uid, objectIDsAttrName)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawIDs, &c.objectIDs); err != nil {
		return nil, err
	}

	rawGroups, err := store.ReadAttribute(uid, groupIDsAttrName)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawGroups, &c.groupIDs); err != nil {
		return nil, err
	}

	// Rebuild buffer tails from the surviving descriptors so appends
	// allocate past every known slice.
	for _, attr := range c.attributes {
		if attr.Slice == nil {
			continue
		}
		buf, ok := c.buffers[attr.Slice.Buffer]
		if !ok {
			buf = &buffer{}
			c.buffers[attr.Slice.Buffer] = buf
		}
		if end := attr.Slice.Offset + attr.Slice.Length; end > buf.length {
			buf.length = end
		}
	}

	for _, id := range c.objectIDs {
		c.objects[id] = &Object{uid: id, parent: c}
		var name string
		if err := c.Literal(id, "Name", &name); err == nil {
			c.objects[id].name = name
		}
	}
	return c, nil
}
