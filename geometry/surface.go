package geometry

import (
	"fmt"

	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

// SurfaceTypeUID is the well-known type identifier of Surface objects.
var SurfaceTypeUID = core.MustUID("f26feba3-aded-494b-b9e9-b2bbcbe298e1")

const surfaceArity = 3

// Surface is a triangulated surface: vertices connected by 3-index
// triangle cells. A surface needs at least three vertices.
type Surface struct {
	CellObject
}

// NewSurface creates a Surface. A nil vertices input defaults to three
// points at the origin with cell (0, 1, 2), with a warning.
func NewSurface(name string, vertices, cells any, opts ...ObjectOption) (*Surface, error) {
	s := &Surface{}
	s.ObjectBase = newObjectBase(name, SurfaceTypeUID, opts)
	s.arity = surfaceArity

	if vertices == nil {
		s.warn("no vertices provided, using three default points at the origin")
		vertices = []Vertex{Origin, Origin, Origin}
		if cells == nil {
			cells = [][]int32{{0, 1, 2}}
		}
	}

	verts, err := ValidateVertices(vertices)
	if err != nil {
		return nil, err
	}
	if len(verts) < surfaceArity {
		return nil, fmt.Errorf("surface must have at least three vertices, got %d: %w",
			len(verts), core.ErrShape)
	}

	var tris [][]int32
	if cells != nil {
		tris, err = ValidateCells(cells, surfaceArity)
		if err != nil {
			return nil, err
		}
	}
	if err := checkCellRange(tris, len(verts)); err != nil {
		return nil, err
	}

	s.vertices = verts
	s.vstate = data.CacheLoaded
	s.cells = tris
	s.cstate = data.CacheLoaded
	return s, nil
}

// LoadSurface binds a Surface object to an already-persisted entity.
// Vertices and cells stay in the container until first access.
func LoadSurface(uid core.UID, name string, opts ...ObjectOption) *Surface {
	s := &Surface{}
	s.ObjectBase = newObjectBase(name, SurfaceTypeUID, opts)
	s.uid = uid
	s.arity = surfaceArity
	s.vstate = data.CacheUnloaded
	s.cstate = data.CacheUnloaded
	return s
}

// Copy produces a new Surface under opts.Parent, optionally sub-sampled
// by opts.Mask and opts.CellMask.
func (s *Surface) Copy(opts CopyOptions) (*Surface, error) {
	verts, cells, vertexKeep, cellKeep, err := s.copyGeometry(opts)
	if err != nil {
		return nil, err
	}

	cp, err := NewSurface(s.name, verts, cells,
		WithStore(s.store), WithLogger(s.log), WithParent(opts.parentOr(s.parent)))
	if err != nil {
		return nil, err
	}

	if opts.CopyChildren {
		if _, err := s.copyChildrenTo(&cp.ObjectBase, vertexKeep, cellKeep); err != nil {
			return nil, err
		}
	}
	return cp, nil
}
