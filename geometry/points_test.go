package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

func TestNewPointsDefaultsToOrigin(t *testing.T) {
	p, err := NewPoints("pts", nil)
	require.NoError(t, err)

	verts, err := p.Vertices()
	require.NoError(t, err)
	assert.Equal(t, []Vertex{Origin}, verts)
}

func TestRemoveVerticesCascadesIntoChildren(t *testing.T) {
	p, err := NewPoints("pts", []Vertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}})
	require.NoError(t, err)

	d := data.NewData("elevation", core.AssociationVertex, data.FloatValues{10, 20, 30, 40})
	d.SetUID(core.NewUID())
	p.AddData(d)

	require.NoError(t, p.RemoveVertices([]int{1, 3}))

	verts, err := p.Vertices()
	require.NoError(t, err)
	assert.Equal(t, []Vertex{{X: 0}, {X: 2}}, verts)

	vals, err := d.Values()
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{10, 30}, vals)
}

func TestRemoveVerticesOutOfRange(t *testing.T) {
	p, err := NewPoints("pts", []Vertex{{X: 0}, {X: 1}})
	require.NoError(t, err)

	err = p.RemoveVertices([]int{2})
	assert.ErrorIs(t, err, core.ErrValue)

	// State untouched on failure.
	n, err := p.NVertices()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRemoveVerticesChildCardinalityMismatch(t *testing.T) {
	p, err := NewPoints("pts", []Vertex{{X: 0}, {X: 1}, {X: 2}})
	require.NoError(t, err)

	d := data.NewData("broken", core.AssociationVertex, data.FloatValues{1, 2})
	d.SetUID(core.NewUID())
	p.AddData(d)

	err = p.RemoveVertices([]int{0})
	assert.ErrorIs(t, err, core.ErrValue)

	n, err := p.NVertices()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPointsCopyWithMask(t *testing.T) {
	p, err := NewPoints("pts", []Vertex{{X: 0}, {X: 1}, {X: 2}})
	require.NoError(t, err)

	d := data.NewData("elevation", core.AssociationVertex, data.FloatValues{10, 20, 30})
	d.SetUID(core.NewUID())
	p.AddData(d)

	cp, err := p.Copy(CopyOptions{
		CopyChildren: true,
		Mask:         MaskFromBools([]bool{true, false, true}),
	})
	require.NoError(t, err)
	require.NotEqual(t, p.UID(), cp.UID(), "a copy gets a fresh identity")

	verts, err := cp.Vertices()
	require.NoError(t, err)
	assert.Equal(t, []Vertex{{X: 0}, {X: 2}}, verts)

	cd, ok := cp.GetData("elevation")
	require.True(t, ok)
	assert.NotEqual(t, d.UID(), cd.UID())
	vals, err := cd.Values()
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{10, 30}, vals)

	// The source stays untouched.
	n, err := p.NVertices()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPointsIteratedMaskMatchesComposedMask(t *testing.T) {
	p, err := NewPoints("pts",
		[]Vertex{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 4}, {X: 5}})
	require.NoError(t, err)

	d := data.NewData("elevation", core.AssociationVertex,
		data.FloatValues{10, 20, 30, 40, 50, 60})
	d.SetUID(core.NewUID())
	p.AddData(d)

	// First mask keeps {0, 2, 3, 5}; the second, in the copy's
	// numbering, keeps {2, 5} of the original.
	cp1, err := p.Copy(CopyOptions{
		CopyChildren: true,
		Mask:         MaskFromBools([]bool{true, false, true, true, false, true}),
	})
	require.NoError(t, err)
	cp2, err := cp1.Copy(CopyOptions{
		CopyChildren: true,
		Mask:         MaskFromBools([]bool{false, true, false, true}),
	})
	require.NoError(t, err)

	direct, err := p.Copy(CopyOptions{
		CopyChildren: true,
		Mask:         MaskFromBools([]bool{false, false, true, false, false, true}),
	})
	require.NoError(t, err)

	iterated, err := cp2.Vertices()
	require.NoError(t, err)
	composed, err := direct.Vertices()
	require.NoError(t, err)
	assert.Equal(t, composed, iterated)
	assert.Equal(t, []Vertex{{X: 2}, {X: 5}}, iterated)

	id, ok := cp2.GetData("elevation")
	require.True(t, ok)
	cd, ok := direct.GetData("elevation")
	require.True(t, ok)
	ivals, err := id.Values()
	require.NoError(t, err)
	cvals, err := cd.Values()
	require.NoError(t, err)
	assert.Equal(t, cvals, ivals)
	assert.Equal(t, data.FloatValues{30, 60}, ivals)
}

func TestPointsSaveAndReload(t *testing.T) {
	store := container.NewMemory()

	p, err := NewPoints("pts", []Vertex{{X: 1, Y: 2, Z: 3}}, WithStore(store))
	require.NoError(t, err)
	require.NoError(t, p.Save(store))

	loaded := LoadPoints(p.UID(), "pts", WithStore(store))
	verts, err := loaded.Vertices()
	require.NoError(t, err)
	assert.Equal(t, []Vertex{{X: 1, Y: 2, Z: 3}}, verts)
}

func TestPropertyGroupRemapOnCopy(t *testing.T) {
	p, err := NewPoints("pts", []Vertex{{X: 0}, {X: 1}})
	require.NoError(t, err)

	d1 := data.NewData("a", core.AssociationVertex, data.FloatValues{1, 2})
	d1.SetUID(core.NewUID())
	d2 := data.NewData("b", core.AssociationVertex, data.FloatValues{3, 4})
	d2.SetUID(core.NewUID())
	p.AddData(d1, d2)

	g := p.FindOrCreatePropertyGroup("channels", core.AssociationVertex, 1)
	require.NoError(t, g.Add(d1, d2))

	cp, err := p.Copy(CopyOptions{CopyChildren: true})
	require.NoError(t, err)

	cg, ok := cp.FindPropertyGroup("channels")
	require.True(t, ok)
	require.Len(t, cg.Properties(), 2)
	for _, member := range cg.Properties() {
		assert.NotContains(t, []core.UID{d1.UID(), d2.UID()}, member,
			"group members must point at the copied children")
	}
}
