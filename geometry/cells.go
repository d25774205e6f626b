package geometry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/geostore/core"
)

// ValidateCells accepts integer index tuples of the given arity and
// normalizes them to [][]int32. Supported input shapes:
//
//   - [][]int32 (passed through after arity check)
//   - [][]int, [][]int64 (cast to int32)
//   - []int32, []int, []int64 (a single flat tuple, or rows of arity)
//
// A non-integer element type fails with core.ErrType; a wrong tuple
// arity fails with core.ErrShape. Index range against the vertex count
// is the caller's mutation-boundary check.
func ValidateCells(indices any, arity int) ([][]int32, error) {
	switch v := indices.(type) {
	case [][]int32:
		out := make([][]int32, len(v))
		for i, row := range v {
			if len(row) != arity {
				return nil, arityErr(i, len(row), arity)
			}
			out[i] = append([]int32(nil), row...)
		}
		return out, nil
	case [][]int:
		out := make([][]int32, len(v))
		for i, row := range v {
			if len(row) != arity {
				return nil, arityErr(i, len(row), arity)
			}
			out[i] = castRow(row)
		}
		return out, nil
	case [][]int64:
		out := make([][]int32, len(v))
		for i, row := range v {
			if len(row) != arity {
				return nil, arityErr(i, len(row), arity)
			}
			out[i] = castRow(row)
		}
		return out, nil
	case []int32:
		return flatCells(v, arity)
	case []int:
		return flatCells(v, arity)
	case []int64:
		return flatCells(v, arity)
	default:
		return nil, fmt.Errorf("cell indices must be integer tuples, got %T: %w",
			indices, core.ErrType)
	}
}

func arityErr(row, got, want int) error {
	return fmt.Errorf("cell %d has %d indices, want %d: %w", row, got, want, core.ErrShape)
}

func castRow[S ~[]E, E int | int32 | int64](row S) []int32 {
	out := make([]int32, len(row))
	for i, n := range row {
		out[i] = int32(n)
	}
	return out
}

func flatCells[S ~[]E, E int | int32 | int64](v S, arity int) ([][]int32, error) {
	if len(v)%arity != 0 {
		return nil, fmt.Errorf("flat cell array of length %d is not divisible by arity %d: %w",
			len(v), arity, core.ErrShape)
	}
	out := make([][]int32, len(v)/arity)
	for i := range out {
		out[i] = castRow(v[i*arity : (i+1)*arity])
	}
	return out, nil
}

// checkCellRange validates every index against the vertex count.
func checkCellRange(cells [][]int32, nVertices int) error {
	for i, row := range cells {
		for _, idx := range row {
			if idx < 0 || int(idx) >= nVertices {
				return fmt.Errorf("cell %d references vertex %d, have %d vertices: %w",
					i, idx, nVertices, core.ErrValue)
			}
		}
	}
	return nil
}

// EncodeCells serializes cells as consecutive 32-bit signed integers,
// little-endian. The arity is implied by the object type.
func EncodeCells(cells [][]int32) []byte {
	var buf bytes.Buffer
	var scratch [4]byte
	for _, row := range cells {
		for _, idx := range row {
			binary.LittleEndian.PutUint32(scratch[:], uint32(idx))
			buf.Write(scratch[:])
		}
	}
	return buf.Bytes()
}

// DecodeCells deserializes an array written by EncodeCells.
func DecodeCells(b []byte, arity int) ([][]int32, error) {
	rowBytes := arity * 4
	if rowBytes == 0 || len(b)%rowBytes != 0 {
		return nil, fmt.Errorf("cell array of %d bytes is not a whole number of %d-tuples: %w",
			len(b), arity, core.ErrShape)
	}
	out := make([][]int32, len(b)/rowBytes)
	for i := range out {
		row := make([]int32, arity)
		for j := range row {
			row[j] = int32(binary.LittleEndian.Uint32(b[i*rowBytes+j*4:]))
		}
		out[i] = row
	}
	return out, nil
}
