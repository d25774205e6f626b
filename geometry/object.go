package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

// Channels maintained by acquisition systems; they are rebuilt by the
// importer rather than carried across copies.
var copyExcludedChannels = map[string]struct{}{
	"A-B Cell ID":    {},
	"Transmitter ID": {},
}

// ObjectBase carries the entity state shared by every geometric object:
// identity, ownership, children data and property groups.
type ObjectBase struct {
	uid     core.UID
	typeUID core.UID
	name    string
	parent  core.UID
	store   container.Store
	log     *slog.Logger

	children []*data.Data
	groups   []*data.PropertyGroup
}

// ObjectOption configures object constructors.
type ObjectOption func(*ObjectBase)

// WithUID pins the entity identifier, e.g. when loading from a
// container. Without it, constructors assign a fresh uid.
func WithUID(uid core.UID) ObjectOption {
	return func(o *ObjectBase) { o.uid = uid }
}

// WithStore attaches the container arrays lazily load from.
func WithStore(s container.Store) ObjectOption {
	return func(o *ObjectBase) { o.store = s }
}

// WithLogger sets the logger warnings surface through.
func WithLogger(log *slog.Logger) ObjectOption {
	return func(o *ObjectBase) { o.log = log }
}

// WithParent records the owning entity.
func WithParent(uid core.UID) ObjectOption {
	return func(o *ObjectBase) { o.parent = uid }
}

// WithTypeUID overrides the type identifier, e.g. for specializations
// that persist under their own well-known type.
func WithTypeUID(uid core.UID) ObjectOption {
	return func(o *ObjectBase) { o.typeUID = uid }
}

func newObjectBase(name string, typeUID core.UID, opts []ObjectOption) ObjectBase {
	o := ObjectBase{
		uid:     core.NewUID(),
		typeUID: typeUID,
		name:    name,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// UID implements registry.Entity.
func (o *ObjectBase) UID() core.UID { return o.uid }

// SetUID implements registry.Entity.
func (o *ObjectBase) SetUID(uid core.UID) { o.uid = uid }

// Name implements registry.Entity.
func (o *ObjectBase) Name() string { return o.name }

// TypeUID implements registry.Entity.
func (o *ObjectBase) TypeUID() core.UID { return o.typeUID }

// Parent returns the owning entity uid.
func (o *ObjectBase) Parent() core.UID { return o.parent }

// SetParent rebinds the owning entity uid.
func (o *ObjectBase) SetParent(uid core.UID) { o.parent = uid }

// Children returns the object's data children.
func (o *ObjectBase) Children() []*data.Data {
	out := make([]*data.Data, len(o.children))
	copy(out, o.children)
	return out
}

// AddData attaches a data child and rebinds its parent.
func (o *ObjectBase) AddData(children ...*data.Data) {
	for _, d := range children {
		d.SetParent(o.uid)
		o.children = append(o.children, d)
	}
}

// GetData returns the first child with the given name.
func (o *ObjectBase) GetData(name string) (*data.Data, bool) {
	for _, d := range o.children {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// PropertyGroups returns the object's property groups.
func (o *ObjectBase) PropertyGroups() []*data.PropertyGroup {
	out := make([]*data.PropertyGroup, len(o.groups))
	copy(out, o.groups)
	return out
}

// FindPropertyGroup returns the group with the given name.
func (o *ObjectBase) FindPropertyGroup(name string) (*data.PropertyGroup, bool) {
	for _, g := range o.groups {
		if g.Name() == name {
			return g, true
		}
	}
	return nil, false
}

// FindOrCreatePropertyGroup returns the group with the given name,
// creating it on first use.
func (o *ObjectBase) FindOrCreatePropertyGroup(name string, assoc core.Association, cardinality int) *data.PropertyGroup {
	if g, ok := o.FindPropertyGroup(name); ok {
		return g
	}
	g := data.NewPropertyGroup(name, assoc, cardinality)
	o.groups = append(o.groups, g)
	return g
}

// AddPropertyGroup attaches an existing group.
func (o *ObjectBase) AddPropertyGroup(g *data.PropertyGroup) {
	o.groups = append(o.groups, g)
}

// preloadChildren forces every child data array into memory. Structural
// mutations call it before re-indexing so no later lazy fetch can read
// through now-stale indices.
func (o *ObjectBase) preloadChildren() error {
	for _, d := range o.children {
		if err := d.Preload(); err != nil {
			return err
		}
	}
	return nil
}

// checkChildCardinality validates, at a mutation boundary, that every
// child keyed on assoc has exactly n values.
func (o *ObjectBase) checkChildCardinality(assoc core.Association, n int) error {
	for _, d := range o.children {
		if d.Association() != assoc {
			continue
		}
		vals, err := d.Values()
		if err != nil {
			return err
		}
		if vals.Len() != n {
			return fmt.Errorf("data %q has %d values for %d %s elements: %w",
				d.Name(), vals.Len(), n, assoc, core.ErrValue)
		}
	}
	return nil
}

// removeChildrenRows drops the given rows from every child keyed on
// assoc. Callers have already preloaded and validated.
func (o *ObjectBase) removeChildrenRows(indices []int, assoc core.Association) error {
	for _, d := range o.children {
		if d.Association() != assoc {
			continue
		}
		if err := d.RemoveRows(indices); err != nil {
			return err
		}
	}
	return nil
}

// copyChildrenTo copies children data onto dst, applying the matching
// row mask per association (nil mask copies everything). It returns the
// uid translation table used to remap property groups.
func (o *ObjectBase) copyChildrenTo(dst *ObjectBase, vertexKeep, cellKeep []bool) (map[core.UID]core.UID, error) {
	table := make(map[core.UID]core.UID, len(o.children))
	for _, child := range o.children {
		if _, excluded := copyExcludedChannels[child.Name()]; excluded {
			continue
		}
		var keep []bool
		switch child.Association() {
		case core.AssociationVertex:
			keep = vertexKeep
		case core.AssociationCell:
			keep = cellKeep
		}
		cp, err := child.Copy(dst.uid, keep)
		if err != nil {
			return nil, err
		}
		cp.SetUID(core.NewUID())
		dst.AddData(cp)
		table[child.UID()] = cp.UID()
	}

	for _, g := range o.groups {
		dst.AddPropertyGroup(g.Remap(table))
	}
	return table, nil
}

// childManifest is the persisted descriptor of one data child.
type childManifest struct {
	UID         core.UID           `json:"uid"`
	Name        string             `json:"name"`
	Association core.Association   `json:"association"`
	Kind        core.PrimitiveKind `json:"kind"`
}

// groupManifest is the persisted descriptor of one property group.
type groupManifest struct {
	Name        string           `json:"name"`
	Association core.Association `json:"association"`
	Cardinality int              `json:"cardinality"`
	Properties  []core.UID       `json:"properties"`
}

// saveBase writes the shared entity attributes, the children and the
// children manifest.
func (o *ObjectBase) saveBase(store container.Store) error {
	if err := store.WriteAttribute(o.uid, "Name", []byte(o.name)); err != nil {
		return err
	}
	if err := store.WriteAttribute(o.uid, "TypeID", []byte(o.typeUID.String())); err != nil {
		return err
	}

	manifest := make([]childManifest, 0, len(o.children))
	for _, d := range o.children {
		if d.UID() == core.NilUID {
			d.SetUID(core.NewUID())
		}
		if err := d.Save(store); err != nil {
			return err
		}
		manifest = append(manifest, childManifest{
			UID:         d.UID(),
			Name:        d.Name(),
			Association: d.Association(),
			Kind:        d.PrimitiveKind(),
		})
	}
	raw, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	if err := store.WriteAttribute(o.uid, "Children", raw); err != nil {
		return err
	}

	groups := make([]groupManifest, 0, len(o.groups))
	for _, g := range o.groups {
		groups = append(groups, groupManifest{
			Name:        g.Name(),
			Association: g.Association(),
			Cardinality: g.Cardinality(),
			Properties:  g.Properties(),
		})
	}
	raw, err = json.Marshal(groups)
	if err != nil {
		return err
	}
	return store.WriteAttribute(o.uid, "PropertyGroups", raw)
}

// LoadChildren restores the persisted data children as unloaded
// entities; their value arrays stay in the container until first
// access. An object saved without children is a no-op.
func (o *ObjectBase) LoadChildren() error {
	if o.store == nil {
		return fmt.Errorf("object %q has no container: %w", o.name, core.ErrNotFound)
	}
	raw, err := o.store.ReadAttribute(o.uid, "Children")
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	var manifest []childManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("object %q: corrupt children manifest: %w", o.name, err)
	}
	for _, m := range manifest {
		d := data.NewUnloadedData(m.UID, m.Name, m.Association, m.Kind, o.store)
		d.SetParent(o.uid)
		o.children = append(o.children, d)
	}
	return o.loadPropertyGroups()
}

func (o *ObjectBase) loadPropertyGroups() error {
	raw, err := o.store.ReadAttribute(o.uid, "PropertyGroups")
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}
	var groups []groupManifest
	if err := json.Unmarshal(raw, &groups); err != nil {
		return fmt.Errorf("object %q: corrupt property group manifest: %w", o.name, err)
	}
	for _, g := range groups {
		o.groups = append(o.groups,
			data.RestoreGroup(g.Name, g.Association, g.Cardinality, g.Properties))
	}
	return nil
}

func (o *ObjectBase) warn(msg string) {
	o.log.Warn(msg, slog.String("object", o.name), slog.String("uid", o.uid.String()))
}
