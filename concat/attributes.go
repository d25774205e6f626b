package concat

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/geostore/core"
)

// SliceDescriptor references a contiguous slice of one shared packed
// buffer.
type SliceDescriptor struct {
	Buffer string `json:"buffer"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
}

// Attribute is one entry of the concatenator's attributes mapping:
// either a literal value or a slice descriptor, never both.
type Attribute struct {
	Literal json.RawMessage  `json:"literal,omitempty"`
	Slice   *SliceDescriptor `json:"slice,omitempty"`
}

// attrKey builds the persisted "{AttributeName}:{child_uid}" key.
func attrKey(name string, uid core.UID) string {
	return fmt.Sprintf("%s:%s", name, uid)
}

// bufferKey builds the shared buffer key for one (attribute name,
// primitive kind) class.
func bufferKey(name string, kind core.PrimitiveKind) string {
	return fmt.Sprintf("%s:%s", name, kind)
}

// persisted attribute/array names on the concatenator entity.
const (
	attributesAttrName = "Attributes"
	objectIDsAttrName  = "Concatenated object IDs"
	groupIDsAttrName   = "Property Group IDs"
	bufferArrayPrefix  = "Buffer:"
)
