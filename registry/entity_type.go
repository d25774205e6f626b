package registry

import (
	"github.com/hupe1980/geostore/core"
)

// EntityType is the shared, value-like descriptor of an entity's
// semantic kind. Many entities may reference one type; the registry
// deduplicates instances per (store, uid).
type EntityType struct {
	uid         core.UID
	name        string
	description string
	kind        core.PrimitiveKind
	units       string
	colorMap    string
}

// TypeOption configures NewEntityType.
type TypeOption func(*EntityType)

// WithDescription sets the free-form description.
func WithDescription(d string) TypeOption {
	return func(t *EntityType) { t.description = d }
}

// WithPrimitiveKind sets the value semantics for data types.
func WithPrimitiveKind(k core.PrimitiveKind) TypeOption {
	return func(t *EntityType) { t.kind = k }
}

// WithUnits sets the measurement units.
func WithUnits(u string) TypeOption {
	return func(t *EntityType) { t.units = u }
}

// WithColorMap sets the name of the preferred color map.
func WithColorMap(c string) TypeOption {
	return func(t *EntityType) { t.colorMap = c }
}

// NewEntityType creates a type descriptor. The uid is the type's
// declared default identifier; pass core.NilUID to let
// FindOrCreateType key it.
func NewEntityType(uid core.UID, name string, opts ...TypeOption) *EntityType {
	t := &EntityType{uid: uid, name: name}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UID returns the type identifier.
func (t *EntityType) UID() core.UID { return t.uid }

// Name returns the type name.
func (t *EntityType) Name() string { return t.name }

// Description returns the free-form description.
func (t *EntityType) Description() string { return t.description }

// PrimitiveKind returns the value semantics for data types, or
// core.KindUnknown for object/group types.
func (t *EntityType) PrimitiveKind() core.PrimitiveKind { return t.kind }

// Units returns the measurement units.
func (t *EntityType) Units() string { return t.units }

// ColorMap returns the preferred color map name.
func (t *EntityType) ColorMap() string { return t.colorMap }
