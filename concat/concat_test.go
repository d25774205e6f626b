package concat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

func TestConcatenatorAppendAndRead(t *testing.T) {
	c := New("drillholes", container.NewMemory())

	dh1, err := c.NewObject("DH1")
	require.NoError(t, err)
	dh2, err := c.NewObject("DH2")
	require.NoError(t, err)

	_, err = dh1.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 10, 20})
	require.NoError(t, err)
	_, err = dh2.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 5})
	require.NoError(t, err)
	_, err = dh1.AddData("Cu", core.AssociationVertex, data.FloatValues{0.3, 0.5, 0.1})
	require.NoError(t, err)

	vals, err := c.Attribute(dh1.UID(), "DEPTH")
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0, 10, 20}, vals)

	vals, err = c.Attribute(dh2.UID(), "DEPTH")
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0, 5}, vals)

	vals, err = c.Attribute(dh1.UID(), "Cu")
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0.3, 0.5, 0.1}, vals)

	_, err = c.Attribute(dh2.UID(), "Cu")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, []core.UID{dh1.UID(), dh2.UID()}, c.ObjectIDs())
}

func TestConcatenatorSharedBufferPerClass(t *testing.T) {
	c := New("drillholes", container.NewMemory())

	dh1, err := c.NewObject("DH1")
	require.NoError(t, err)
	dh2, err := c.NewObject("DH2")
	require.NoError(t, err)

	_, err = dh1.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 10})
	require.NoError(t, err)
	_, err = dh2.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 5})
	require.NoError(t, err)

	attrs := c.Attributes()
	d1 := attrs["DEPTH:"+dh1.UID().String()]
	d2 := attrs["DEPTH:"+dh2.UID().String()]
	require.NotNil(t, d1.Slice)
	require.NotNil(t, d2.Slice)

	// Same attribute name and kind share one buffer; the second slice
	// starts at the first one's tail.
	assert.Equal(t, d1.Slice.Buffer, d2.Slice.Buffer)
	assert.Equal(t, int64(0), d1.Slice.Offset)
	assert.Equal(t, d1.Slice.Length, d2.Slice.Offset)
}

func TestConcatenatorPersistRoundTrip(t *testing.T) {
	store := container.NewMemory()
	c := New("drillholes", store)

	dh1, err := c.NewObject("DH1")
	require.NoError(t, err)
	_, err = dh1.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 10, 20})
	require.NoError(t, err)
	_, err = dh1.AddData("lithology", core.AssociationVertex, &data.ReferencedValues{
		Indices: []int32{1, 1, 2},
		Labels:  map[int32]string{1: "Basalt", 2: "Gabbro"},
	})
	require.NoError(t, err)

	require.NoError(t, c.Save())

	loaded, err := Load(store, c.UID())
	require.NoError(t, err)
	assert.Equal(t, "drillholes", loaded.Name())
	assert.Equal(t, []core.UID{dh1.UID()}, loaded.ObjectIDs())

	obj, ok := loaded.Object(dh1.UID())
	require.True(t, ok)
	assert.Equal(t, "DH1", obj.Name())

	// Only the child's slice is read back, not the whole buffer set.
	vals, err := loaded.Attribute(dh1.UID(), "DEPTH")
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0, 10, 20}, vals)

	vals, err = loaded.Attribute(dh1.UID(), "lithology")
	require.NoError(t, err)
	ref := vals.(*data.ReferencedValues)
	assert.Equal(t, []int32{1, 1, 2}, ref.Indices)
	assert.Equal(t, "Gabbro", ref.Labels[2])
}

func TestConcatenatorInsertionOrderIndependent(t *testing.T) {
	a := New("fwd", container.NewMemory())
	b := New("rev", container.NewMemory())

	blocks := map[string]data.FloatValues{
		"DH1": {0, 10, 20},
		"DH2": {0, 5},
		"DH3": {0, 1, 2, 3},
	}

	objsA := map[string]*Object{}
	for _, name := range []string{"DH1", "DH2", "DH3"} {
		o, err := a.NewObject(name)
		require.NoError(t, err)
		_, err = o.AddData("DEPTH", core.AssociationVertex, blocks[name])
		require.NoError(t, err)
		objsA[name] = o
	}
	objsB := map[string]*Object{}
	for _, name := range []string{"DH3", "DH1", "DH2"} {
		o, err := b.NewObject(name)
		require.NoError(t, err)
		_, err = o.AddData("DEPTH", core.AssociationVertex, blocks[name])
		require.NoError(t, err)
		objsB[name] = o
	}

	for name, want := range blocks {
		got, err := a.Attribute(objsA[name].UID(), "DEPTH")
		require.NoError(t, err)
		assert.Equal(t, want, got, name)

		got, err = b.Attribute(objsB[name].UID(), "DEPTH")
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestDetachLeavesSlicesInPlace(t *testing.T) {
	c := New("drillholes", container.NewMemory())

	dh1, err := c.NewObject("DH1")
	require.NoError(t, err)
	dh2, err := c.NewObject("DH2")
	require.NoError(t, err)
	_, err = dh1.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 10})
	require.NoError(t, err)
	_, err = dh2.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 5})
	require.NoError(t, err)

	before := c.Attributes()["DEPTH:"+dh2.UID().String()].Slice.Offset
	require.NotZero(t, before)

	c.Detach(dh1.UID())

	assert.Equal(t, []core.UID{dh2.UID()}, c.ObjectIDs())
	_, ok := c.Object(dh1.UID())
	assert.False(t, ok)
	_, err = c.Attribute(dh1.UID(), "DEPTH")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// The survivor's descriptor is untouched: no slice is reclaimed.
	after := c.Attributes()["DEPTH:"+dh2.UID().String()].Slice.Offset
	assert.Equal(t, before, after)

	vals, err := c.Attribute(dh2.UID(), "DEPTH")
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0, 5}, vals)
}

func TestCompactReclaimsDetachedSlices(t *testing.T) {
	store := container.NewMemory()
	c := New("drillholes", store)

	dh1, err := c.NewObject("DH1")
	require.NoError(t, err)
	dh2, err := c.NewObject("DH2")
	require.NoError(t, err)
	_, err = dh1.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 10})
	require.NoError(t, err)
	_, err = dh2.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 5})
	require.NoError(t, err)

	c.Detach(dh1.UID())
	require.NoError(t, c.Compact())

	// The survivor now starts at the buffer head.
	desc := c.Attributes()["DEPTH:"+dh2.UID().String()].Slice
	require.NotNil(t, desc)
	assert.Equal(t, int64(0), desc.Offset)

	vals, err := c.Attribute(dh2.UID(), "DEPTH")
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0, 5}, vals)

	// Compacted buffers persist and read back.
	require.NoError(t, c.Save())
	loaded, err := Load(store, c.UID())
	require.NoError(t, err)
	vals, err = loaded.Attribute(dh2.UID(), "DEPTH")
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{0, 5}, vals)
}

func TestConcatenatedDataNValues(t *testing.T) {
	c := New("drillholes", container.NewMemory())

	dh, err := c.NewObject("DH1")
	require.NoError(t, err)
	_, err = dh.AddData("DEPTH", core.AssociationVertex, data.FloatValues{0, 10, 20})
	require.NoError(t, err)
	cu, err := dh.AddData("Cu", core.AssociationVertex, data.FloatValues{0.1, 0.2, 0.3})
	require.NoError(t, err)

	n, err := cu.NValues()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestConcatenatedDataNValuesWithoutDepth(t *testing.T) {
	c := New("drillholes", container.NewMemory())

	dh, err := c.NewObject("DH1")
	require.NoError(t, err)
	cu, err := dh.AddData("Cu", core.AssociationVertex, data.FloatValues{0.1})
	require.NoError(t, err)

	_, err = cu.NValues()
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLiteralRoundTrip(t *testing.T) {
	c := New("drillholes", container.NewMemory())
	child := core.NewUID()

	require.NoError(t, c.SetLiteral(child, "Collar", map[string]float64{"x": 1, "y": 2}))

	var collar map[string]float64
	require.NoError(t, c.Literal(child, "Collar", &collar))
	assert.Equal(t, map[string]float64{"x": 1, "y": 2}, collar)

	err := c.Literal(child, "Missing", &collar)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
