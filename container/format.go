package container

import "hash/crc32"

// On-disk layout of the file backend (all integers little-endian):
//
//	[Header]  magic u32 | version u32 | compression u8 | reserved [7]byte
//	[Blocks]  compressed payloads, back to back
//	[Index]   count u32, then per entry:
//	          uid [16]byte | kind u8 | nameLen u16 | name |
//	          offset u64 | compLen u64 | rawLen u64 | crc u32
//	[Footer]  indexOff u64 | indexLen u64 | indexCRC u32 | magic u32
//
// Every flush rewrites the file atomically (temp file + rename); blocks
// are immutable between flushes, which is what makes the mmap range
// read path safe.
const (
	// MagicNumber identifies a geostore container file ("GST1").
	MagicNumber uint32 = 0x47535431

	// FormatVersion is bumped on incompatible layout changes.
	FormatVersion uint32 = 1

	headerSize = 16
	footerSize = 24
)

const (
	blockKindAttribute uint8 = iota
	blockKindArray
)

var crcTable = crc32.MakeTable(crc32.IEEE)

type blockInfo struct {
	kind    uint8
	offset  int64
	compLen int64
	rawLen  int64
	crc     uint32
}
