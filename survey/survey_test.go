package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
	"github.com/hupe1980/geostore/geometry"
)

func newTestSurvey(t *testing.T, role string) *Survey {
	t.Helper()
	s, err := New("airborne", role, []geometry.Vertex{{X: 0}, {X: 1}})
	require.NoError(t, err)
	return s
}

func TestEditMetadataFansOut(t *testing.T) {
	rx := newTestSurvey(t, RoleReceivers)
	tx := newTestSurvey(t, RoleTransmitters)
	rx.SetTransmitters(tx)

	require.NoError(t, rx.EditMetadata(map[string]any{"Loop radius": 13.0}))

	assert.Equal(t, 13.0, tx.Metadata()["Loop radius"],
		"an edit through one entity must be visible through its complement")

	// And the other direction, through the shared mapping.
	require.NoError(t, tx.EditMetadata(map[string]any{"Loop radius": 26.0}))
	assert.Equal(t, 26.0, rx.Metadata()["Loop radius"])
}

func TestEditMetadataNilDeletes(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)

	require.NoError(t, s.EditMetadata(map[string]any{"Comment": "keep"}))
	require.NoError(t, s.EditMetadata(map[string]any{"Comment": nil}))

	_, ok := s.Metadata()["Comment"]
	assert.False(t, ok)
}

func TestSetChannels(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)

	assert.Nil(t, s.Channels())
	require.NoError(t, s.SetChannels([]float64{1, 2, 3}))
	assert.Equal(t, []float64{1, 2, 3}, s.Channels())

	err := s.SetChannels(nil)
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestAddComponentsData(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)
	require.NoError(t, s.SetChannels([]float64{100, 200, 300}))

	groups, err := s.AddComponentsData(map[string]any{
		"dBdt": []data.Values{
			data.FloatValues{1, 2},
			data.FloatValues{3, 4},
			data.FloatValues{5, 6},
		},
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "dBdt", groups[0].Name())
	assert.Len(t, groups[0].Properties(), 3)

	// The group name lands in the metadata list of every component.
	assert.Equal(t, []string{"dBdt"}, s.Metadata()["Property groups"])

	comps := s.Components()
	require.Contains(t, comps, "dBdt")
	assert.Len(t, comps["dBdt"], 3)
}

func TestAddComponentsDataExistingEntities(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)
	require.NoError(t, s.SetChannels([]float64{100}))

	d := data.NewData("field", core.AssociationVertex, data.FloatValues{1, 2},
		data.WithParent(s.UID()))
	d.SetUID(core.NewUID())
	s.AddData(d)

	groups, err := s.AddComponentsData(map[string]any{"field": []*data.Data{d}})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Contains(d.UID()))
}

func TestAddComponentsDataRejectsDuplicateGroup(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)
	require.NoError(t, s.SetChannels([]float64{100}))

	_, err := s.AddComponentsData(map[string]any{
		"dBdt": []data.Values{data.FloatValues{1}},
	})
	require.NoError(t, err)

	_, err = s.AddComponentsData(map[string]any{
		"dBdt": []data.Values{data.FloatValues{2}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestAddComponentsDataFailureLeavesNoTrace(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)
	require.NoError(t, s.SetChannels([]float64{100}))

	stray := data.NewData("field", core.AssociationCell, data.FloatValues{1, 2},
		data.WithParent(s.UID()))
	stray.SetUID(core.NewUID())
	s.AddData(stray)

	_, err := s.AddComponentsData(map[string]any{"field": []*data.Data{stray}})
	require.ErrorIs(t, err, core.ErrValue)

	// The failed component must not leave an empty group or a
	// metadata entry behind.
	_, ok := s.FindPropertyGroup("field")
	assert.False(t, ok)
	_, ok = s.Metadata()["Property groups"]
	assert.False(t, ok)

	// A corrected retry under the same name succeeds.
	groups, err := s.AddComponentsData(map[string]any{
		"field": []data.Values{data.FloatValues{1, 2}},
	})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "field", groups[0].Name())
}

func TestAddComponentsDataPartialFailureCommitsNothing(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)
	require.NoError(t, s.SetChannels([]float64{100}))

	_, err := s.AddComponentsData(map[string]any{
		"good": []data.Values{data.FloatValues{1, 2}},
		"bad":  []data.Values{nil},
	})
	require.Error(t, err)

	// Whatever order the components were seen in, none may commit.
	assert.Empty(t, s.Children())
	_, ok := s.FindPropertyGroup("good")
	assert.False(t, ok)
	_, ok = s.Metadata()["Property groups"]
	assert.False(t, ok)
}

func TestAddComponentsDataChannelCountMismatch(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)
	require.NoError(t, s.SetChannels([]float64{100, 200}))

	_, err := s.AddComponentsData(map[string]any{
		"dBdt": []data.Values{data.FloatValues{1}},
	})
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestAddComponentsDataForeignEntity(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)
	require.NoError(t, s.SetChannels([]float64{100}))

	stray := data.NewData("field", core.AssociationVertex, data.FloatValues{1})
	stray.SetUID(core.NewUID())

	_, err := s.AddComponentsData(map[string]any{"field": []*data.Data{stray}})
	assert.ErrorIs(t, err, core.ErrType)
}

func TestAddComponentsDataWithoutChannels(t *testing.T) {
	s := newTestSurvey(t, RoleReceivers)

	_, err := s.AddComponentsData(map[string]any{
		"dBdt": []data.Values{data.FloatValues{1}},
	})
	assert.ErrorIs(t, err, core.ErrValue)
}

func TestSurveySaveAndLoad(t *testing.T) {
	store := container.NewMemory()

	s, err := New("airborne", RoleReceivers, []geometry.Vertex{{X: 0}, {X: 1}},
		geometry.WithStore(store))
	require.NoError(t, err)
	require.NoError(t, s.SetChannels([]float64{100, 200}))
	_, err = s.AddComponentsData(map[string]any{
		"dBdt": []data.Values{
			data.FloatValues{1, 2},
			data.FloatValues{3, 4},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Save(store))

	loaded, err := Load(store, s.UID(), "airborne", geometry.WithStore(store))
	require.NoError(t, err)

	assert.Equal(t, RoleReceivers, loaded.Role())
	assert.Equal(t, []float64{100, 200}, loaded.Channels())

	comps := loaded.Components()
	require.Contains(t, comps, "dBdt")
	require.Len(t, comps["dBdt"], 2)
	vals, err := comps["dBdt"][0].Values()
	require.NoError(t, err)
	assert.Equal(t, data.FloatValues{1, 2}, vals)
}

func TestSurveyCopyRebindsDataset(t *testing.T) {
	rx := newTestSurvey(t, RoleReceivers)
	tx := newTestSurvey(t, RoleTransmitters)
	rx.SetTransmitters(tx)
	require.NoError(t, rx.EditMetadata(map[string]any{
		RoleReceivers:    rx.UID(),
		RoleTransmitters: tx.UID(),
	}))

	cp, err := rx.Copy(geometry.CopyOptions{})
	require.NoError(t, err)

	require.NotNil(t, cp.Transmitters())
	assert.NotEqual(t, tx.UID(), cp.Transmitters().UID())

	// The copied dataset references only the copied entities.
	assert.Equal(t, cp.UID(), cp.Metadata()[RoleReceivers])
	assert.Equal(t, cp.Transmitters().UID(), cp.Metadata()[RoleTransmitters])

	// Complements of the copy share one mapping again.
	require.NoError(t, cp.EditMetadata(map[string]any{"Comment": "copied"}))
	assert.Equal(t, "copied", cp.Transmitters().Metadata()["Comment"])

	// The source dataset is untouched.
	assert.Equal(t, rx.UID(), rx.Metadata()[RoleReceivers])
}
