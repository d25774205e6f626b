package geometry

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

// PointsTypeUID is the well-known type identifier of Points objects.
var PointsTypeUID = core.MustUID("202c5db1-a56d-4004-9cad-baafd8899406")

// vertexArrayName is the container array name vertices persist under.
const vertexArrayName = "Vertices"

// Points is a geometric object made up of vertices.
type Points struct {
	ObjectBase

	vmu      sync.Mutex
	vertices []Vertex
	vstate   data.CacheState
}

// NewPoints creates a Points object. vertices accepts the shapes of
// ValidateVertices; a nil input defaults to a single point at the
// origin with a warning.
func NewPoints(name string, vertices any, opts ...ObjectOption) (*Points, error) {
	p := &Points{ObjectBase: newObjectBase(name, PointsTypeUID, opts)}

	verts, err := ValidateVertices(vertices)
	if err != nil {
		return nil, err
	}
	if vertices == nil {
		p.warn("no vertices provided, using a default point at the origin")
	}
	p.vertices = verts
	p.vstate = data.CacheLoaded
	return p, nil
}

// LoadPoints binds a Points object to an already-persisted entity.
// Vertices stay in the container until first access.
func LoadPoints(uid core.UID, name string, opts ...ObjectOption) *Points {
	p := &Points{ObjectBase: newObjectBase(name, PointsTypeUID, opts)}
	p.uid = uid
	p.vstate = data.CacheUnloaded
	return p
}

// Vertices returns the coordinate array, fetched lazily from the
// container on first access.
func (p *Points) Vertices() ([]Vertex, error) {
	p.vmu.Lock()
	defer p.vmu.Unlock()
	return p.verticesLocked()
}

func (p *Points) verticesLocked() ([]Vertex, error) {
	if p.vstate == data.CacheLoaded {
		return p.vertices, nil
	}
	if p.store == nil {
		return nil, fmt.Errorf("object %q has no vertices and no container: %w",
			p.name, core.ErrNotFound)
	}
	raw, err := p.store.ReadArray(p.uid, vertexArrayName)
	if err != nil {
		return nil, err
	}
	verts, err := DecodeVertices(raw)
	if err != nil {
		return nil, err
	}
	p.vertices = verts
	p.vstate = data.CacheLoaded
	return verts, nil
}

// NVertices returns the vertex count.
func (p *Points) NVertices() (int, error) {
	verts, err := p.Vertices()
	if err != nil {
		return 0, err
	}
	return len(verts), nil
}

// setVertices replaces the cached coordinate array.
func (p *Points) setVertices(verts []Vertex) {
	p.vmu.Lock()
	defer p.vmu.Unlock()
	p.vertices = verts
	p.vstate = data.CacheLoaded
}

// RemoveVertices removes the given vertex rows and the matching rows of
// every vertex-associated data child. Out-of-range indices fail with
// core.ErrValue before any state changes; an empty vertex set is a
// warning no-op.
func (p *Points) RemoveVertices(indices []int) error {
	verts, err := p.Vertices()
	if err != nil {
		return err
	}
	if len(verts) == 0 {
		p.warn("no vertices to be removed")
		return nil
	}
	if err := checkIndexRange(indices, len(verts), "vertices"); err != nil {
		return err
	}

	// Pre-load every child before re-indexing, not only the vertex-
	// associated ones: a later lazy fetch against the container would
	// read rows addressed by stale indices.
	if err := p.preloadChildren(); err != nil {
		return err
	}
	if err := p.checkChildCardinality(core.AssociationVertex, len(verts)); err != nil {
		return err
	}

	keep := keepMask(len(verts), indices)
	next := make([]Vertex, 0, len(verts))
	for i, v := range verts {
		if keep[i] {
			next = append(next, v)
		}
	}

	if err := p.removeChildrenRows(indices, core.AssociationVertex); err != nil {
		return err
	}
	p.setVertices(next)
	return nil
}

// CopyOptions controls object copies.
type CopyOptions struct {
	// Parent is the owner of the copy; zero keeps the current parent.
	Parent core.UID
	// CopyChildren also copies every data child, masked per its
	// association.
	CopyChildren bool
	// Mask selects the vertex rows to keep; nil keeps all.
	Mask *roaring.Bitmap
	// CellMask selects the cell rows to keep. When nil and Mask is
	// set, it is derived as "every corner survives Mask".
	CellMask *roaring.Bitmap
}

func (opts *CopyOptions) parentOr(current core.UID) core.UID {
	if opts.Parent == core.NilUID {
		return current
	}
	return opts.Parent
}

// Copy produces a new Points object under opts.Parent, optionally
// sub-sampled by opts.Mask.
func (p *Points) Copy(opts CopyOptions) (*Points, error) {
	verts, err := p.Vertices()
	if err != nil {
		return nil, err
	}

	var vertexKeep []bool
	if opts.Mask != nil {
		vertexKeep = maskToBools(opts.Mask, len(verts))
	}

	newVerts := applyVertexMask(verts, vertexKeep)
	cp, err := NewPoints(p.name, newVerts, WithStore(p.store), WithLogger(p.log),
		WithParent(opts.parentOr(p.parent)), WithTypeUID(p.typeUID))
	if err != nil {
		return nil, err
	}

	if opts.CopyChildren {
		if _, err := p.copyChildrenTo(&cp.ObjectBase, vertexKeep, nil); err != nil {
			return nil, err
		}
	}
	return cp, nil
}

// Save writes the object and its children to the store.
func (p *Points) Save(store container.Store) error {
	verts, err := p.Vertices()
	if err != nil {
		return err
	}
	if err := store.WriteArray(p.uid, vertexArrayName, EncodeVertices(verts)); err != nil {
		return err
	}
	return p.saveBase(store)
}

func applyVertexMask(verts []Vertex, keep []bool) []Vertex {
	if keep == nil {
		out := make([]Vertex, len(verts))
		copy(out, verts)
		return out
	}
	out := make([]Vertex, 0, len(verts))
	for i, v := range verts {
		if i < len(keep) && keep[i] {
			out = append(out, v)
		}
	}
	return out
}

// keepMask returns a boolean mask of length n with the given rows
// cleared.
func keepMask(n int, removed []int) []bool {
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	for _, idx := range removed {
		keep[idx] = false
	}
	return keep
}

func checkIndexRange(indices []int, n int, what string) error {
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("found indices larger than the number of %s (%d >= %d): %w",
				what, idx, n, core.ErrValue)
		}
	}
	return nil
}
