package core

import "fmt"

// PrimitiveKind describes the value semantics of a data array.
//
// The numeric values are part of the persisted schema; extending or
// reordering this set is a breaking change.
type PrimitiveKind uint8

const (
	KindUnknown PrimitiveKind = iota
	KindInteger
	KindFloat
	KindReferenced
	KindText
	KindFilename
	KindDatetime
	KindBlob
)

// String returns the persisted name of the kind.
func (k PrimitiveKind) String() string {
	switch k {
	case KindUnknown:
		return "UNKNOWN"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindReferenced:
		return "REFERENCED"
	case KindText:
		return "TEXT"
	case KindFilename:
		return "FILENAME"
	case KindDatetime:
		return "DATETIME"
	case KindBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("PrimitiveKind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the eight persisted kinds.
func (k PrimitiveKind) Valid() bool {
	return k <= KindBlob
}

// Association is the index space a data array is keyed on.
type Association uint8

const (
	AssociationUnknown Association = iota
	// AssociationVertex keys one value per vertex.
	AssociationVertex
	// AssociationCell keys one value per cell.
	AssociationCell
	// AssociationObject keys a single value on the owning object.
	AssociationObject
	// AssociationGroup keys values on a property-group declared cardinality.
	AssociationGroup
)

// String returns the persisted name of the association.
func (a Association) String() string {
	switch a {
	case AssociationVertex:
		return "VERTEX"
	case AssociationCell:
		return "CELL"
	case AssociationObject:
		return "OBJECT"
	case AssociationGroup:
		return "GROUP"
	default:
		return "UNKNOWN"
	}
}
