// Package survey implements electromagnetic survey objects: vertex
// based receiver/transmitter entities whose measured channels are
// grouped into property groups and whose metadata is kept synchronized
// across the linked entities of one logical dataset.
package survey

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
	"github.com/hupe1980/geostore/geometry"
)

// SurveyTypeUID is the well-known type identifier of survey objects.
var SurveyTypeUID = core.MustUID("c978f5ba-6a34-4a82-8cd4-219b1e44f012")

// Roles of the linked entities inside one EM dataset.
const (
	RoleReceivers    = "Receivers"
	RoleTransmitters = "Transmitters"
	RoleBaseStations = "Base stations"
)

// Metadata keys maintained by the survey.
const (
	channelsKey       = "Channels"
	propertyGroupsKey = "Property groups"
)

// Survey is an EM survey object. Receivers, transmitters and base
// stations of one dataset share a single metadata mapping; editing it
// through any of them fans the update out to the others.
type Survey struct {
	*geometry.Points
	role string

	metadata     map[string]any
	receivers    *Survey
	transmitters *Survey
	baseStations *Survey
}

// New creates a survey object with the given role.
func New(name, role string, vertices any, opts ...geometry.ObjectOption) (*Survey, error) {
	pts, err := geometry.NewPoints(name, vertices, surveyOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return &Survey{
		Points:   pts,
		role:     role,
		metadata: make(map[string]any),
	}, nil
}

// Load materializes a persisted survey. Children arrays stay in the
// container until first access; role and metadata are restored
// eagerly.
func Load(store container.Store, uid core.UID, name string, opts ...geometry.ObjectOption) (*Survey, error) {
	pts := geometry.LoadPoints(uid, name, surveyOptions(opts)...)
	if err := pts.LoadChildren(); err != nil {
		return nil, err
	}
	s := &Survey{
		Points:   pts,
		metadata: make(map[string]any),
	}

	if raw, err := store.ReadAttribute(uid, "Role"); err == nil {
		s.role = string(raw)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	raw, err := store.ReadAttribute(uid, "Metadata")
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.metadata); err != nil {
		return nil, fmt.Errorf("survey %s: corrupt metadata: %w", uid, err)
	}
	normalizeMetadata(s.metadata)
	return s, nil
}

func surveyOptions(opts []geometry.ObjectOption) []geometry.ObjectOption {
	out := make([]geometry.ObjectOption, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, geometry.WithTypeUID(SurveyTypeUID))
}

// normalizeMetadata undoes the type erasure of the JSON round-trip for
// the keys the accessors give a concrete type.
func normalizeMetadata(meta map[string]any) {
	if v, ok := meta[channelsKey].([]any); ok {
		channels := make([]float64, 0, len(v))
		for _, e := range v {
			if f, ok := e.(float64); ok {
				channels = append(channels, f)
			}
		}
		meta[channelsKey] = channels
	}
	if v, ok := meta[propertyGroupsKey].([]any); ok {
		names := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				names = append(names, s)
			}
		}
		meta[propertyGroupsKey] = names
	}
}

// Role returns the survey's role within its dataset.
func (s *Survey) Role() string { return s.role }

// Metadata returns the shared metadata mapping.
func (s *Survey) Metadata() map[string]any { return s.metadata }

// Receivers returns the linked receiver entity, possibly s itself.
func (s *Survey) Receivers() *Survey { return s.receivers }

// Transmitters returns the linked transmitter entity.
func (s *Survey) Transmitters() *Survey { return s.transmitters }

// BaseStations returns the linked base station entity.
func (s *Survey) BaseStations() *Survey { return s.baseStations }

// SetReceivers links the receiver entity and shares the metadata.
func (s *Survey) SetReceivers(r *Survey) {
	s.receivers = r
	s.syncDependents()
}

// SetTransmitters links the transmitter entity and shares the metadata.
func (s *Survey) SetTransmitters(t *Survey) {
	s.transmitters = t
	s.syncDependents()
}

// SetBaseStations links the base station entity and shares the
// metadata.
func (s *Survey) SetBaseStations(b *Survey) {
	s.baseStations = b
	s.syncDependents()
}

// Channels returns the measured channel values, nil when unset.
func (s *Survey) Channels() []float64 {
	v, ok := s.metadata[channelsKey]
	if !ok {
		return nil
	}
	channels, _ := v.([]float64)
	return channels
}

// SetChannels validates and records the measured channels.
func (s *Survey) SetChannels(values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("channels must be a non-empty list of floats: %w", core.ErrValue)
	}
	return s.EditMetadata(map[string]any{channelsKey: values})
}

// EditMetadata mutates the metadata mapping in place and fans the
// updated mapping out to every linked dependent entity, so one logical
// dataset never holds divergent copies. A nil value deletes the key.
func (s *Survey) EditMetadata(entries map[string]any) error {
	for key, value := range entries {
		switch {
		case key == propertyGroupsKey:
			if err := s.editPropertyGroups(value); err != nil {
				return err
			}
		case value == nil:
			delete(s.metadata, key)
		default:
			s.metadata[key] = value
		}
	}
	s.syncDependents()
	return nil
}

func (s *Survey) editPropertyGroups(value any) error {
	var names []string
	switch v := value.(type) {
	case nil:
		delete(s.metadata, propertyGroupsKey)
		return nil
	case string:
		names = []string{v}
	case []string:
		names = v
	case *data.PropertyGroup:
		names = []string{v.Name()}
	case []*data.PropertyGroup:
		for _, g := range v {
			names = append(names, g.Name())
		}
	default:
		return fmt.Errorf("property groups entry must name groups, got %T: %w", value, core.ErrType)
	}

	existing, _ := s.metadata[propertyGroupsKey].([]string)
	for _, name := range names {
		found := false
		for _, have := range existing {
			if have == name {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, name)
		}
	}
	s.metadata[propertyGroupsKey] = existing
	return nil
}

// syncDependents shares the metadata mapping with every linked entity.
func (s *Survey) syncDependents() {
	for _, dep := range []*Survey{s.receivers, s.transmitters, s.baseStations} {
		if dep != nil && dep != s {
			dep.metadata = s.metadata
		}
	}
}

// AddComponentsData adds named component channel data to the survey.
// Each component supplies either existing data entities belonging to
// the survey ([]*data.Data) or raw value arrays ([]data.Values) that
// new entities are created from. Every component must provide exactly
// one entry per declared channel.
//
// One property group is built per component and its name is appended
// to the metadata "Property groups" list. A component whose name
// already has a group fails; edit the existing group through
// EditMetadata instead.
func (s *Survey) AddComponentsData(components map[string]any) ([]*data.PropertyGroup, error) {
	channels := s.Channels()
	if len(channels) == 0 {
		return nil, fmt.Errorf("survey channels must be set before components can be added: %w",
			core.ErrValue)
	}

	// Validate and build every component before touching the survey,
	// so a failing entry leaves no partial groups or children behind.
	staged := make([]stagedComponent, 0, len(components))
	for name, block := range components {
		st, err := s.stageComponent(name, block, len(channels))
		if err != nil {
			return nil, err
		}
		staged = append(staged, st)
	}

	groups := make([]*data.PropertyGroup, 0, len(staged))
	for _, st := range staged {
		s.AddData(st.created...)
		s.AddPropertyGroup(st.group)
		if err := s.EditMetadata(map[string]any{propertyGroupsKey: st.group}); err != nil {
			return nil, err
		}
		groups = append(groups, st.group)
	}
	return groups, nil
}

// stagedComponent is one fully validated component waiting to be
// attached.
type stagedComponent struct {
	group   *data.PropertyGroup
	created []*data.Data
}

func (s *Survey) stageComponent(name string, block any, nChannels int) (stagedComponent, error) {
	var none stagedComponent
	if _, exists := s.FindPropertyGroup(name); exists {
		return none, fmt.Errorf("property group %q already exists on the survey; "+
			"use EditMetadata with a %q entry instead: %w", name, propertyGroupsKey, core.ErrValue)
	}

	var channelData, created []*data.Data
	switch entries := block.(type) {
	case []*data.Data:
		if len(entries) != nChannels {
			return none, channelCountErr(name, len(entries), nChannels)
		}
		for _, d := range entries {
			if d == nil || d.Parent() != s.UID() {
				return none, fmt.Errorf("component %q entries must be data belonging to the survey: %w",
					name, core.ErrType)
			}
		}
		channelData = entries
	case []data.Values:
		if len(entries) != nChannels {
			return none, channelCountErr(name, len(entries), nChannels)
		}
		for i, vals := range entries {
			if vals == nil {
				return none, fmt.Errorf("component %q channel %d has no values: %w",
					name, i, core.ErrType)
			}
			d := data.NewData(fmt.Sprintf("%s[%d]", name, i), core.AssociationVertex, vals,
				data.WithParent(s.UID()))
			d.SetUID(core.NewUID())
			created = append(created, d)
			channelData = append(channelData, d)
		}
	default:
		return none, fmt.Errorf("component %q must supply []*data.Data or []data.Values, got %T: %w",
			name, block, core.ErrType)
	}

	group := data.NewPropertyGroup(name, core.AssociationVertex, nChannels)
	if err := group.Add(channelData...); err != nil {
		return none, err
	}
	return stagedComponent{group: group, created: created}, nil
}

func channelCountErr(name string, got, want int) error {
	return fmt.Errorf("component %q supplies %d channel entries, survey declares %d channels: %w",
		name, got, want, core.ErrValue)
}

// Components resolves the grouped channel data of every registered
// component.
func (s *Survey) Components() map[string][]*data.Data {
	names, _ := s.metadata[propertyGroupsKey].([]string)
	if len(names) == 0 {
		return nil
	}
	out := make(map[string][]*data.Data, len(names))
	for _, name := range names {
		group, ok := s.FindPropertyGroup(name)
		if !ok {
			continue
		}
		var members []*data.Data
		for _, uid := range group.Properties() {
			for _, child := range s.Children() {
				if child.UID() == uid {
					members = append(members, child)
					break
				}
			}
		}
		out[name] = members
	}
	return out
}

// Copy produces a new survey under opts.Parent, carrying the linked
// complement entities along and rebinding the metadata identifiers so
// the copies form their own consistent dataset.
func (s *Survey) Copy(opts geometry.CopyOptions) (*Survey, error) {
	pts, err := s.Points.Copy(opts)
	if err != nil {
		return nil, err
	}
	cp := &Survey{
		Points:   pts,
		role:     s.role,
		metadata: make(map[string]any, len(s.metadata)),
	}
	for k, v := range s.metadata {
		cp.metadata[k] = v
	}
	cp.metadata[s.role] = cp.UID()

	for _, link := range []struct {
		src *Survey
		set func(*Survey)
	}{
		{s.receivers, cp.SetReceivers},
		{s.transmitters, cp.SetTransmitters},
		{s.baseStations, cp.SetBaseStations},
	} {
		if link.src == nil || link.src == s {
			continue
		}
		complementPts, err := link.src.Points.Copy(opts)
		if err != nil {
			return nil, err
		}
		complement := &Survey{
			Points: complementPts,
			role:   link.src.role,
		}
		cp.metadata[complement.role] = complement.UID()
		complement.metadata = cp.metadata
		link.set(complement)
	}
	return cp, nil
}

// Save writes the survey object; metadata is persisted alongside the
// geometry.
func (s *Survey) Save(store container.Store) error {
	if err := s.Points.Save(store); err != nil {
		return err
	}
	if err := store.WriteAttribute(s.UID(), "Role", []byte(s.role)); err != nil {
		return err
	}
	raw, err := json.Marshal(s.metadata)
	if err != nil {
		return err
	}
	return store.WriteAttribute(s.UID(), "Metadata", raw)
}
