package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

func TestNewCurveDefaultPolyline(t *testing.T) {
	c, err := NewCurve("line", []Vertex{{X: 0}, {X: 1}, {X: 2}}, nil)
	require.NoError(t, err)

	cells, err := c.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{0, 1}, {1, 2}}, cells)
}

func TestNewCurveRejectsOutOfRangeCells(t *testing.T) {
	_, err := NewCurve("line", []Vertex{{X: 0}, {X: 1}}, [][]int32{{0, 2}})
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestNewSurfaceDefaults(t *testing.T) {
	s, err := NewSurface("surf", nil, nil)
	require.NoError(t, err)

	verts, err := s.Vertices()
	require.NoError(t, err)
	assert.Len(t, verts, 3)

	cells, err := s.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{0, 1, 2}}, cells)
}

func TestNewSurfaceTooFewVertices(t *testing.T) {
	_, err := NewSurface("surf", []Vertex{{X: 0}, {X: 1}}, nil)
	assert.ErrorIs(t, err, core.ErrShape)
}

func TestRemoveCells(t *testing.T) {
	s, err := NewSurface("surf",
		[]Vertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
		[][]int32{{0, 1, 2}, {1, 2, 3}})
	require.NoError(t, err)

	d := data.NewData("dip", core.AssociationCell, data.FloatValues{0.1, 0.2})
	d.SetUID(core.NewUID())
	s.AddData(d)

	require.NoError(t, s.RemoveCells([]int{0}))

	cells, err := s.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{1, 2, 3}}, cells)

	// Vertices are never touched by cell removal.
	n, err := s.NVertices()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	vals, err := d.Values()
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0.2}, vals)
}

func TestRemoveVerticesCascade(t *testing.T) {
	s, err := NewSurface("surf",
		[]Vertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
		[][]int32{{0, 1, 2}, {1, 2, 3}})
	require.NoError(t, err)

	vd := data.NewData("elevation", core.AssociationVertex, data.FloatValues{10, 20, 30, 40})
	vd.SetUID(core.NewUID())
	cd := data.NewData("dip", core.AssociationCell, data.FloatValues{0.1, 0.2})
	cd.SetUID(core.NewUID())
	s.AddData(vd, cd)

	// Removing vertex 3 kills cell (1,2,3); the surviving cell is
	// rewritten into the unchanged numbering.
	require.NoError(t, s.RemoveVertices([]int{3}))

	verts, err := s.Vertices()
	require.NoError(t, err)
	assert.Equal(t, []Vertex{{X: 0}, {X: 1}, {X: 2}}, verts)

	cells, err := s.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{0, 1, 2}}, cells)

	vvals, err := vd.Values()
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{10, 20, 30}, vvals)

	cvals, err := cd.Values()
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0.1}, cvals)
}

func TestRemoveVerticesRemapsSurvivingCells(t *testing.T) {
	s, err := NewSurface("surf",
		[]Vertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
		[][]int32{{0, 1, 2}, {1, 2, 3}})
	require.NoError(t, err)

	// Removing vertex 0 kills cell (0,1,2); the survivor (1,2,3)
	// becomes (0,1,2) under the new contiguous numbering.
	require.NoError(t, s.RemoveVertices([]int{0}))

	cells, err := s.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{0, 1, 2}}, cells)

	n, err := s.NVertices()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRemoveAllCellCornersLeavesNoCells(t *testing.T) {
	s, err := NewSurface("surf",
		[]Vertex{{X: 0}, {X: 1}, {X: 2}},
		[][]int32{{0, 1, 2}})
	require.NoError(t, err)

	require.NoError(t, s.RemoveVertices([]int{0}))

	n, err := s.NVertices()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cells, err := s.Cells()
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestCopyDerivesCellMaskFromVertexMask(t *testing.T) {
	s, err := NewSurface("surf",
		[]Vertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}},
		[][]int32{{0, 1, 2}, {1, 2, 3}})
	require.NoError(t, err)

	cd := data.NewData("dip", core.AssociationCell, data.FloatValues{0.1, 0.2})
	cd.SetUID(core.NewUID())
	s.AddData(cd)

	cp, err := s.Copy(CopyOptions{
		CopyChildren: true,
		Mask:         MaskFromBools([]bool{true, true, true, false}),
	})
	require.NoError(t, err)

	cells, err := cp.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{0, 1, 2}}, cells)

	ccd, ok := cp.GetData("dip")
	require.True(t, ok)
	vals, err := ccd.Values()
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0.1}, vals)
}

func TestSurfaceIteratedMaskMatchesComposedMask(t *testing.T) {
	s, err := NewSurface("surf",
		[]Vertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}},
		[][]int32{{0, 1, 2}, {0, 2, 3}, {1, 4, 2}})
	require.NoError(t, err)

	// First mask drops vertex 4; the second drops the copy's index 1,
	// i.e. the original vertex 1.
	cp1, err := s.Copy(CopyOptions{
		Mask: MaskFromBools([]bool{true, true, true, true, false}),
	})
	require.NoError(t, err)
	cp2, err := cp1.Copy(CopyOptions{
		Mask: MaskFromBools([]bool{true, false, true, true}),
	})
	require.NoError(t, err)

	direct, err := s.Copy(CopyOptions{
		Mask: MaskFromBools([]bool{true, false, true, true, false}),
	})
	require.NoError(t, err)

	iterated, err := cp2.Vertices()
	require.NoError(t, err)
	composed, err := direct.Vertices()
	require.NoError(t, err)
	assert.Equal(t, composed, iterated)
	assert.Equal(t, []Vertex{{X: 0}, {X: 2}, {X: 3}}, iterated)

	// The derived cell masks compose the same way: only (0,2,3)
	// survives both rounds, remapped into the final numbering.
	icells, err := cp2.Cells()
	require.NoError(t, err)
	ccells, err := direct.Cells()
	require.NoError(t, err)
	assert.Equal(t, ccells, icells)
	assert.Equal(t, [][]int32{{0, 1, 2}}, icells)
}

func TestCopyWithExplicitCellMask(t *testing.T) {
	c, err := NewCurve("line", []Vertex{{X: 0}, {X: 1}, {X: 2}}, nil)
	require.NoError(t, err)

	cp, err := c.Copy(CopyOptions{
		Mask:     MaskFromBools([]bool{true, true, true}),
		CellMask: MaskFromBools([]bool{false, true}),
	})
	require.NoError(t, err)

	cells, err := cp.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{1, 2}}, cells)
}

func TestCurveSaveAndReload(t *testing.T) {
	store := container.NewMemory()

	c, err := NewCurve("line", []Vertex{{X: 0}, {X: 1}, {X: 2}}, nil, WithStore(store))
	require.NoError(t, err)
	require.NoError(t, c.Save(store))

	loaded := LoadCurve(c.UID(), "line", WithStore(store))
	verts, err := loaded.Vertices()
	require.NoError(t, err)
	assert.Len(t, verts, 3)

	cells, err := loaded.Cells()
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{0, 1}, {1, 2}}, cells)
}
