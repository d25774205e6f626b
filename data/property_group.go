package data

import (
	"fmt"

	"github.com/hupe1980/geostore/core"
)

// PropertyGroup is a named, ordered set of data entities sharing one
// association and a declared cardinality, e.g. all channels of a
// survey component.
type PropertyGroup struct {
	uid         core.UID
	name        string
	assoc       core.Association
	cardinality int
	properties  []core.UID
}

// NewPropertyGroup creates an empty group.
func NewPropertyGroup(name string, assoc core.Association, cardinality int) *PropertyGroup {
	return &PropertyGroup{
		uid:         core.NewUID(),
		name:        name,
		assoc:       assoc,
		cardinality: cardinality,
	}
}

// RestoreGroup rebuilds a persisted group with its recorded members.
func RestoreGroup(name string, assoc core.Association, cardinality int, members []core.UID) *PropertyGroup {
	g := NewPropertyGroup(name, assoc, cardinality)
	g.properties = append(g.properties, members...)
	return g
}

// UID returns the group identifier.
func (g *PropertyGroup) UID() core.UID { return g.uid }

// Name returns the group name.
func (g *PropertyGroup) Name() string { return g.name }

// Association returns the shared association of all members.
func (g *PropertyGroup) Association() core.Association { return g.assoc }

// Cardinality returns the declared per-member value count, 0 if
// undeclared.
func (g *PropertyGroup) Cardinality() int { return g.cardinality }

// Properties returns the ordered member uids.
func (g *PropertyGroup) Properties() []core.UID {
	out := make([]core.UID, len(g.properties))
	copy(out, g.properties)
	return out
}

// Contains reports whether uid is a member.
func (g *PropertyGroup) Contains(uid core.UID) bool {
	for _, p := range g.properties {
		if p == uid {
			return true
		}
	}
	return false
}

// Add appends members, validating the shared association.
func (g *PropertyGroup) Add(members ...*Data) error {
	for _, d := range members {
		if d.Association() != g.assoc {
			return fmt.Errorf("data %q has association %s, group %q requires %s: %w",
				d.Name(), d.Association(), g.name, g.assoc, core.ErrValue)
		}
	}
	for _, d := range members {
		if !g.Contains(d.UID()) {
			g.properties = append(g.properties, d.UID())
		}
	}
	return nil
}

// Remove drops uid from the members. Unknown uids are ignored.
func (g *PropertyGroup) Remove(uid core.UID) {
	out := g.properties[:0]
	for _, p := range g.properties {
		if p != uid {
			out = append(out, p)
		}
	}
	g.properties = out
}

// Remap returns a copy of the group with member uids translated
// through table. Members without a translation are dropped, matching
// the copy semantics of objects that exclude some children.
func (g *PropertyGroup) Remap(table map[core.UID]core.UID) *PropertyGroup {
	out := NewPropertyGroup(g.name, g.assoc, g.cardinality)
	for _, p := range g.properties {
		if mapped, ok := table[p]; ok {
			out.properties = append(out.properties, mapped)
		}
	}
	return out
}
