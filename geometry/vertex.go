package geometry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/geostore/core"
)

// Vertex is one 3-D coordinate. The persisted form is a structured
// triple of 64-bit floats in x, y, z field order.
type Vertex struct {
	X, Y, Z float64
}

// Origin is the default vertex used when no input is provided.
var Origin = Vertex{}

// ValidateVertices accepts an ordered sequence of numeric triples in
// any of the supported shapes and normalizes it to []Vertex:
//
//   - []Vertex (already typed, passed through)
//   - [][3]float64
//   - [][]float64 (every row must have exactly 3 coordinates)
//   - []float64 (flat, length divisible by 3)
//
// A nil input yields a single point at the origin; the caller is
// expected to surface the non-fatal warning. Any other input type
// fails with core.ErrType; a wrong row arity fails with core.ErrShape.
func ValidateVertices(xyz any) ([]Vertex, error) {
	if xyz == nil {
		return []Vertex{Origin}, nil
	}

	switch v := xyz.(type) {
	case []Vertex:
		if len(v) == 0 {
			return []Vertex{Origin}, nil
		}
		out := make([]Vertex, len(v))
		copy(out, v)
		return out, nil
	case [][3]float64:
		out := make([]Vertex, len(v))
		for i, row := range v {
			out[i] = Vertex{X: row[0], Y: row[1], Z: row[2]}
		}
		return out, nil
	case [][]float64:
		out := make([]Vertex, len(v))
		for i, row := range v {
			if len(row) != 3 {
				return nil, fmt.Errorf("vertex row %d has %d coordinates, want 3: %w",
					i, len(row), core.ErrShape)
			}
			out[i] = Vertex{X: row[0], Y: row[1], Z: row[2]}
		}
		return out, nil
	case []float64:
		if len(v)%3 != 0 {
			return nil, fmt.Errorf("flat vertex array of length %d is not divisible by 3: %w",
				len(v), core.ErrShape)
		}
		out := make([]Vertex, len(v)/3)
		for i := range out {
			out[i] = Vertex{X: v[i*3], Y: v[i*3+1], Z: v[i*3+2]}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("vertices must be numeric triples, got %T: %w", xyz, core.ErrType)
	}
}

// EncodeVertices serializes vertices as consecutive x, y, z 64-bit
// floats, little-endian. This layout is a round-trip obligation of the
// container schema.
func EncodeVertices(v []Vertex) []byte {
	var buf bytes.Buffer
	var scratch [8]byte
	for _, p := range v {
		for _, c := range [3]float64{p.X, p.Y, p.Z} {
			binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(c))
			buf.Write(scratch[:])
		}
	}
	return buf.Bytes()
}

// DecodeVertices deserializes an array written by EncodeVertices.
func DecodeVertices(b []byte) ([]Vertex, error) {
	if len(b)%24 != 0 {
		return nil, fmt.Errorf("vertex array of %d bytes is not a whole number of triples: %w",
			len(b), core.ErrShape)
	}
	out := make([]Vertex, len(b)/24)
	for i := range out {
		off := i * 24
		out[i] = Vertex{
			X: math.Float64frombits(binary.LittleEndian.Uint64(b[off:])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(b[off+8:])),
			Z: math.Float64frombits(binary.LittleEndian.Uint64(b[off+16:])),
		}
	}
	return out, nil
}

// MaskFromBools builds a selection bitmap from a boolean row mask.
func MaskFromBools(keep []bool) *roaring.Bitmap {
	m := roaring.New()
	for i, k := range keep {
		if k {
			m.Add(uint32(i))
		}
	}
	return m
}

// maskToBools expands a selection bitmap to a boolean mask of length n.
func maskToBools(m *roaring.Bitmap, n int) []bool {
	out := make([]bool, n)
	it := m.Iterator()
	for it.HasNext() {
		i := it.Next()
		if int(i) < n {
			out[i] = true
		}
	}
	return out
}
