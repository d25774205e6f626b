package geostore

import (
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/registry"
)

// GroupTypeUID is the well-known type identifier of container groups.
var GroupTypeUID = core.MustUID("61fbb4e8-a480-11e3-8d5a-2776bdf4f982")

// Group is a plain container entity. An open group pins its children
// in the registry: as long as the group is live, every child resolves.
type Group struct {
	uid     core.UID
	typeUID core.UID
	name    string
	parent  core.UID

	children []*registry.Handle
}

// NewGroup creates a group entity.
func NewGroup(name string) *Group {
	return &Group{
		uid:     core.NewUID(),
		typeUID: GroupTypeUID,
		name:    name,
	}
}

// UID implements registry.Entity.
func (g *Group) UID() core.UID { return g.uid }

// SetUID implements registry.Entity.
func (g *Group) SetUID(uid core.UID) { g.uid = uid }

// Name implements registry.Entity.
func (g *Group) Name() string { return g.name }

// TypeUID implements registry.Entity.
func (g *Group) TypeUID() core.UID { return g.typeUID }

// Parent returns the owning entity uid, core.NilUID for the store
// root.
func (g *Group) Parent() core.UID { return g.parent }

// SetParent rebinds the owning entity uid.
func (g *Group) SetParent(uid core.UID) { g.parent = uid }

// Children returns the pinned child identifiers in insertion order.
func (g *Group) Children() []core.UID {
	out := make([]core.UID, len(g.children))
	for i, h := range g.children {
		out[i] = h.UID()
	}
	return out
}

// pin takes ownership of a child handle.
func (g *Group) pin(h *registry.Handle) {
	g.children = append(g.children, h)
}

// release drops the child with the given uid, returning whether it was
// pinned here.
func (g *Group) release(uid core.UID) bool {
	for i, h := range g.children {
		if h.UID() == uid {
			h.Release()
			g.children = append(g.children[:i], g.children[i+1:]...)
			return true
		}
	}
	return false
}

// releaseAll drops every pinned child.
func (g *Group) releaseAll() {
	for _, h := range g.children {
		h.Release()
	}
	g.children = nil
}
