package geometry

import (
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

// CurveTypeUID is the well-known type identifier of Curve objects.
var CurveTypeUID = core.MustUID("6a057fdc-b355-11e3-95be-fd84a7ffcb88")

const curveArity = 2

// Curve is a polyline: vertices connected by 2-index segment cells.
type Curve struct {
	CellObject
}

// NewCurve creates a Curve. When cells is nil, consecutive vertices are
// connected into a single polyline.
func NewCurve(name string, vertices, cells any, opts ...ObjectOption) (*Curve, error) {
	c := &Curve{}
	c.ObjectBase = newObjectBase(name, CurveTypeUID, opts)
	c.arity = curveArity

	verts, err := ValidateVertices(vertices)
	if err != nil {
		return nil, err
	}
	if vertices == nil {
		c.warn("no vertices provided, using a default point at the origin")
	}

	var segs [][]int32
	if cells == nil {
		segs = make([][]int32, 0, len(verts)-1)
		for i := 0; i+1 < len(verts); i++ {
			segs = append(segs, []int32{int32(i), int32(i + 1)})
		}
	} else {
		segs, err = ValidateCells(cells, curveArity)
		if err != nil {
			return nil, err
		}
	}
	if err := checkCellRange(segs, len(verts)); err != nil {
		return nil, err
	}

	c.vertices = verts
	c.vstate = data.CacheLoaded
	c.cells = segs
	c.cstate = data.CacheLoaded
	return c, nil
}

// LoadCurve binds a Curve object to an already-persisted entity.
// Vertices and cells stay in the container until first access.
func LoadCurve(uid core.UID, name string, opts ...ObjectOption) *Curve {
	c := &Curve{}
	c.ObjectBase = newObjectBase(name, CurveTypeUID, opts)
	c.uid = uid
	c.arity = curveArity
	c.vstate = data.CacheUnloaded
	c.cstate = data.CacheUnloaded
	return c
}

// Copy produces a new Curve under opts.Parent, optionally sub-sampled
// by opts.Mask and opts.CellMask.
func (c *Curve) Copy(opts CopyOptions) (*Curve, error) {
	verts, cells, vertexKeep, cellKeep, err := c.copyGeometry(opts)
	if err != nil {
		return nil, err
	}

	cp, err := NewCurve(c.name, verts, cells,
		WithStore(c.store), WithLogger(c.log), WithParent(opts.parentOr(c.parent)))
	if err != nil {
		return nil, err
	}

	if opts.CopyChildren {
		if _, err := c.copyChildrenTo(&cp.ObjectBase, vertexKeep, cellKeep); err != nil {
			return nil, err
		}
	}
	return cp, nil
}
