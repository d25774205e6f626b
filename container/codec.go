package container

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the per-block codec of the file backend.
type Compression uint8

const (
	// CompressionNone stores blocks verbatim. Range reads are served
	// straight from the mapped file.
	CompressionNone Compression = iota
	// CompressionLZ4 favors decompression speed.
	CompressionLZ4
	// CompressionZstd favors ratio.
	CompressionZstd
)

// String returns the codec name as recorded in the file header.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

var zstdEncoder, _ = zstd.NewWriter(nil,
	zstd.WithEncoderLevel(zstd.SpeedDefault),
	zstd.WithEncoderConcurrency(1),
)

var zstdDecoder, _ = zstd.NewReader(nil,
	zstd.WithDecoderConcurrency(1),
)

// compressBlock encodes raw with codec c. The returned slice is freshly
// allocated; raw is untouched.
func compressBlock(c Compression, raw []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return cloneBytes(raw), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(raw, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression codec %d", c)
	}
}

// decompressBlock decodes a block produced by compressBlock. rawLen is
// the expected decoded size from the block index.
func decompressBlock(c Compression, comp []byte, rawLen int64) ([]byte, error) {
	switch c {
	case CompressionNone:
		return comp, nil
	case CompressionLZ4:
		zr := lz4.NewReader(bytes.NewReader(comp))
		out := make([]byte, rawLen)
		if _, err := io.ReadFull(zr, out); err != nil {
			return nil, err
		}
		return out, nil
	case CompressionZstd:
		return zstdDecoder.DecodeAll(comp, make([]byte, 0, rawLen))
	default:
		return nil, fmt.Errorf("unknown compression codec %d", c)
	}
}
