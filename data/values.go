package data

import (
	"fmt"
	"time"

	"github.com/hupe1980/geostore/core"
)

// Values is a typed per-element value array. The concrete types form a
// closed set, one per core.PrimitiveKind.
type Values interface {
	// Kind returns the value semantics.
	Kind() core.PrimitiveKind
	// Len returns the number of elements.
	Len() int
	// Mask returns a copy holding only the elements where keep is true.
	// len(keep) must equal Len.
	Mask(keep []bool) Values
}

// FloatValues holds 64-bit float values.
type FloatValues []float64

func (v FloatValues) Kind() core.PrimitiveKind { return core.KindFloat }
func (v FloatValues) Len() int                 { return len(v) }
func (v FloatValues) Mask(keep []bool) Values  { return maskSlice(v, keep) }

// IntegerValues holds 32-bit signed integer values.
type IntegerValues []int32

func (v IntegerValues) Kind() core.PrimitiveKind { return core.KindInteger }
func (v IntegerValues) Len() int                 { return len(v) }
func (v IntegerValues) Mask(keep []bool) Values  { return maskSlice(v, keep) }

// TextValues holds string values.
type TextValues []string

func (v TextValues) Kind() core.PrimitiveKind { return core.KindText }
func (v TextValues) Len() int                 { return len(v) }
func (v TextValues) Mask(keep []bool) Values  { return maskSlice(v, keep) }

// FilenameValues holds file name references.
type FilenameValues []string

func (v FilenameValues) Kind() core.PrimitiveKind { return core.KindFilename }
func (v FilenameValues) Len() int                 { return len(v) }
func (v FilenameValues) Mask(keep []bool) Values  { return maskSlice(v, keep) }

// DatetimeValues holds timestamps.
type DatetimeValues []time.Time

func (v DatetimeValues) Kind() core.PrimitiveKind { return core.KindDatetime }
func (v DatetimeValues) Len() int                 { return len(v) }
func (v DatetimeValues) Mask(keep []bool) Values  { return maskSlice(v, keep) }

// BlobValues holds opaque byte values.
type BlobValues [][]byte

func (v BlobValues) Kind() core.PrimitiveKind { return core.KindBlob }
func (v BlobValues) Len() int                 { return len(v) }
func (v BlobValues) Mask(keep []bool) Values  { return maskSlice(v, keep) }

// ReferencedValues holds categorical values: an index per element plus
// the shared index-to-label map.
type ReferencedValues struct {
	Indices []int32
	Labels  map[int32]string
}

func (v *ReferencedValues) Kind() core.PrimitiveKind { return core.KindReferenced }
func (v *ReferencedValues) Len() int                 { return len(v.Indices) }

func (v *ReferencedValues) Mask(keep []bool) Values {
	out := &ReferencedValues{
		Indices: maskSlice(v.Indices, keep),
		Labels:  make(map[int32]string, len(v.Labels)),
	}
	for k, label := range v.Labels {
		out.Labels[k] = label
	}
	return out
}

func maskSlice[S ~[]E, E any](v S, keep []bool) S {
	out := make(S, 0, len(v))
	for i, e := range v {
		if i < len(keep) && keep[i] {
			out = append(out, e)
		}
	}
	return out
}

// RemoveRows returns a copy of v without the rows at indices. An index
// out of range fails with core.ErrValue before any element is dropped.
func RemoveRows(v Values, indices []int) (Values, error) {
	keep := make([]bool, v.Len())
	for i := range keep {
		keep[i] = true
	}
	for _, idx := range indices {
		if idx < 0 || idx >= v.Len() {
			return nil, fmt.Errorf("row index %d out of range (%d values): %w",
				idx, v.Len(), core.ErrValue)
		}
		keep[idx] = false
	}
	return v.Mask(keep), nil
}
