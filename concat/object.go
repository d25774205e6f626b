package concat

import (
	"fmt"

	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

// Object is a child managed by a concatenator, e.g. one drillhole of a
// drillhole group. It is not registered as a top-level entity; it is
// reachable only through the parent's object list.
type Object struct {
	uid    core.UID
	name   string
	parent *Concatenator
	props  []*ConcatenatedData
	group  *data.PropertyGroup
}

// NewObject creates a managed child and records its identifier in the
// concatenator's object list.
func (c *Concatenator) NewObject(name string) (*Object, error) {
	o := &Object{
		uid:    core.NewUID(),
		name:   name,
		parent: c,
	}
	if err := c.SetLiteral(o.uid, "Name", name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.objectIDs = append(c.objectIDs, o.uid)
	c.objects[o.uid] = o
	c.mu.Unlock()
	return o, nil
}

// Object resolves a managed child by identifier.
func (c *Concatenator) Object(uid core.UID) (*Object, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.objects[uid]
	return o, ok
}

// UID returns the child identifier.
func (o *Object) UID() core.UID { return o.uid }

// Name returns the child name.
func (o *Object) Name() string { return o.name }

// Concatenator returns the managing parent.
func (o *Object) Concatenator() *Concatenator { return o.parent }

// PropertyGroup returns the interval group of the object, if any.
func (o *Object) PropertyGroup() *data.PropertyGroup { return o.group }

// SetPropertyGroup attaches the interval group and records its
// identifier on the concatenator.
func (o *Object) SetPropertyGroup(g *data.PropertyGroup) {
	o.group = g
	o.parent.AddPropertyGroupID(g.UID())
}

// AddData packs a value array as attribute name of this object and
// returns the concatenated data entity addressing it.
func (o *Object) AddData(name string, assoc core.Association, vals data.Values) (*ConcatenatedData, error) {
	if err := o.parent.AppendAttribute(o.uid, name, vals); err != nil {
		return nil, err
	}
	d := &ConcatenatedData{
		uid:    core.NewUID(),
		name:   name,
		assoc:  assoc,
		parent: o,
	}
	if err := o.parent.SetLiteral(o.uid, "Property:"+name, d.uid); err != nil {
		return nil, err
	}
	o.props = append(o.props, d)
	return d, nil
}

// Data returns the concatenated data entity with the given name.
func (o *Object) Data(name string) (*ConcatenatedData, bool) {
	for _, d := range o.props {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

// ConcatenatedData is a data entity whose values are a slice into the
// concatenator's shared buffer rather than a standalone array.
type ConcatenatedData struct {
	uid    core.UID
	name   string
	assoc  core.Association
	parent *Object
	cached data.Values
}

// UID returns the data identifier.
func (d *ConcatenatedData) UID() core.UID { return d.uid }

// Name returns the attribute name.
func (d *ConcatenatedData) Name() string { return d.name }

// Association returns the index space the values are keyed on.
func (d *ConcatenatedData) Association() core.Association { return d.assoc }

// Values materializes the packed slice, caching it on this instance.
func (d *ConcatenatedData) Values() (data.Values, error) {
	if d.cached != nil {
		return d.cached, nil
	}
	vals, err := d.parent.parent.Attribute(d.parent.uid, d.name)
	if err != nil {
		return nil, err
	}
	d.cached = vals
	return vals, nil
}

// NValues derives the value count from the sibling depth or from-to
// interval array of the object's property group; it is not stored
// redundantly.
func (d *ConcatenatedData) NValues() (int, error) {
	for _, sibling := range []string{"DEPTH", "FROM"} {
		ref, ok := d.parent.Data(sibling)
		if !ok || ref == d {
			continue
		}
		vals, err := ref.Values()
		if err != nil {
			return 0, err
		}
		return vals.Len(), nil
	}
	return 0, fmt.Errorf("object %q has no depth or interval array: %w",
		d.parent.name, core.ErrNotFound)
}
