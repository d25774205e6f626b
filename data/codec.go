package data

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/geostore/core"
)

// Binary encoding of value arrays, little-endian throughout:
//
//	kind u8 | count u32 | payload
//
// FLOAT      count * f64
// INTEGER    count * i32
// TEXT/FILENAME  per element: len u32 | bytes
// DATETIME   count * i64 (unix nanoseconds, UTC)
// BLOB       per element: len u32 | bytes
// REFERENCED count * i32 indices, then labelCount u32,
//            per label: key i32 | len u32 | bytes

// EncodeValues serializes v for the container.
func EncodeValues(v Values) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(v.Kind()))

	var scratch [8]byte
	writeU32 := func(u uint32) {
		binary.LittleEndian.PutUint32(scratch[:4], u)
		buf.Write(scratch[:4])
	}
	writeU64 := func(u uint64) {
		binary.LittleEndian.PutUint64(scratch[:8], u)
		buf.Write(scratch[:8])
	}
	writeBytes := func(b []byte) {
		writeU32(uint32(len(b)))
		buf.Write(b)
	}

	writeU32(uint32(v.Len()))

	switch vals := v.(type) {
	case FloatValues:
		for _, f := range vals {
			writeU64(math.Float64bits(f))
		}
	case IntegerValues:
		for _, n := range vals {
			writeU32(uint32(n))
		}
	case TextValues:
		for _, s := range vals {
			writeBytes([]byte(s))
		}
	case FilenameValues:
		for _, s := range vals {
			writeBytes([]byte(s))
		}
	case DatetimeValues:
		for _, t := range vals {
			writeU64(uint64(t.UTC().UnixNano()))
		}
	case BlobValues:
		for _, b := range vals {
			writeBytes(b)
		}
	case *ReferencedValues:
		for _, n := range vals.Indices {
			writeU32(uint32(n))
		}
		keys := make([]int32, 0, len(vals.Labels))
		for k := range vals.Labels {
			keys = append(keys, k)
		}
		// Deterministic label order for byte-stable round-trips.
		for i := 0; i < len(keys); i++ {
			for j := i + 1; j < len(keys); j++ {
				if keys[j] < keys[i] {
					keys[i], keys[j] = keys[j], keys[i]
				}
			}
		}
		writeU32(uint32(len(keys)))
		for _, k := range keys {
			writeU32(uint32(k))
			writeBytes([]byte(vals.Labels[k]))
		}
	default:
		return nil, fmt.Errorf("unsupported values type %T: %w", v, core.ErrType)
	}

	return buf.Bytes(), nil
}

// DecodeValues deserializes a value array written by EncodeValues.
func DecodeValues(b []byte) (Values, error) {
	r := &byteReader{buf: b}

	kindByte, err := r.u8()
	if err != nil {
		return nil, err
	}
	kind := core.PrimitiveKind(kindByte)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown primitive kind %d: %w", kindByte, core.ErrType)
	}

	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	n := int(count)

	switch kind {
	case core.KindFloat:
		out := make(FloatValues, n)
		for i := range out {
			u, err := r.u64()
			if err != nil {
				return nil, err
			}
			out[i] = math.Float64frombits(u)
		}
		return out, nil
	case core.KindInteger:
		out := make(IntegerValues, n)
		for i := range out {
			u, err := r.u32()
			if err != nil {
				return nil, err
			}
			out[i] = int32(u)
		}
		return out, nil
	case core.KindText, core.KindFilename:
		strs := make([]string, n)
		for i := range strs {
			b, err := r.bytes()
			if err != nil {
				return nil, err
			}
			strs[i] = string(b)
		}
		if kind == core.KindFilename {
			return FilenameValues(strs), nil
		}
		return TextValues(strs), nil
	case core.KindDatetime:
		out := make(DatetimeValues, n)
		for i := range out {
			u, err := r.u64()
			if err != nil {
				return nil, err
			}
			out[i] = time.Unix(0, int64(u)).UTC()
		}
		return out, nil
	case core.KindBlob:
		out := make(BlobValues, n)
		for i := range out {
			b, err := r.bytes()
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	case core.KindReferenced:
		out := &ReferencedValues{
			Indices: make([]int32, n),
			Labels:  make(map[int32]string),
		}
		for i := range out.Indices {
			u, err := r.u32()
			if err != nil {
				return nil, err
			}
			out.Indices[i] = int32(u)
		}
		labelCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		for i := uint32(0); i < labelCount; i++ {
			k, err := r.u32()
			if err != nil {
				return nil, err
			}
			label, err := r.bytes()
			if err != nil {
				return nil, err
			}
			out.Labels[int32(k)] = string(label)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot decode primitive kind %s: %w", kind, core.ErrType)
	}
}

type byteReader struct {
	buf []byte
	off int
}

func (r *byteReader) u8() (byte, error) {
	if r.off+1 > len(r.buf) {
		return 0, fmt.Errorf("values payload truncated at offset %d", r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *byteReader) u32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("values payload truncated at offset %d", r.off)
	}
	u := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return u, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("values payload truncated at offset %d", r.off)
	}
	u := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return u, nil
}

func (r *byteReader) bytes() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if r.off+int(n) > len(r.buf) {
		return nil, fmt.Errorf("values payload truncated at offset %d", r.off)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return out, nil
}
