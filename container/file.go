package container

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/internal/mmap"
)

// File is a Store persisted as a single binary container file.
//
// Writes accumulate in memory; Flush rewrites the file atomically and
// remaps it. Reads between flushes are served from the pending writes
// first, then from the mapped file, so a reader never observes a
// half-written container.
type File struct {
	mu   sync.RWMutex
	path string

	// compression is the codec blocks are written with on the next
	// Flush; diskCompression is the codec the mapped blocks are
	// currently encoded with. They diverge between reopening an
	// existing file with WithCompression and the next Flush.
	compression     Compression
	diskCompression Compression
	compressionSet  bool

	index   map[entryKey]*blockInfo
	pending map[entryKey]*pendingWrite
	reader  *mmap.File
	closed  bool
}

// pendingWrite is an uncommitted write. A nil buf with tombstone set
// removes the entry on the next flush.
type pendingWrite struct {
	kind      uint8
	buf       []byte
	tombstone bool
}

// FileOption configures OpenFile.
type FileOption func(*File)

// WithCompression selects the block codec used on the next Flush.
// Existing blocks are transparently re-encoded when rewritten.
func WithCompression(c Compression) FileOption {
	return func(f *File) {
		f.compression = c
		f.compressionSet = true
	}
}

// OpenFile opens (or creates) a container file at path.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		path:        path,
		compression: CompressionNone,
		index:       make(map[entryKey]*blockInfo),
		pending:     make(map[entryKey]*pendingWrite),
	}
	for _, opt := range opts {
		opt(f)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			f.diskCompression = f.compression
			return f, nil
		}
		return nil, err
	}

	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	r, err := mmap.Open(f.path)
	if err != nil {
		return err
	}

	size := r.Size()
	if size < headerSize+footerSize {
		r.Close()
		return fmt.Errorf("container %s: truncated file (%d bytes)", f.path, size)
	}

	header := make([]byte, headerSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		r.Close()
		return err
	}
	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != MagicNumber {
		r.Close()
		return fmt.Errorf("container %s: bad magic 0x%08x", f.path, magic)
	}
	if version := binary.LittleEndian.Uint32(header[4:8]); version != FormatVersion {
		r.Close()
		return fmt.Errorf("container %s: unsupported format version %d", f.path, version)
	}
	f.diskCompression = Compression(header[8])
	if !f.compressionSet {
		f.compression = f.diskCompression
	}

	footer := make([]byte, footerSize)
	if _, err := r.ReadAt(footer, size-footerSize); err != nil {
		r.Close()
		return err
	}
	if magic := binary.LittleEndian.Uint32(footer[20:24]); magic != MagicNumber {
		r.Close()
		return fmt.Errorf("container %s: bad footer magic", f.path)
	}

	indexOff := int64(binary.LittleEndian.Uint64(footer[0:8]))
	indexLen := int64(binary.LittleEndian.Uint64(footer[8:16]))
	indexCRC := binary.LittleEndian.Uint32(footer[16:20])

	if indexOff < headerSize || indexOff+indexLen > size-footerSize {
		r.Close()
		return fmt.Errorf("container %s: index section out of bounds", f.path)
	}

	indexBytes := make([]byte, indexLen)
	if _, err := r.ReadAt(indexBytes, indexOff); err != nil {
		r.Close()
		return err
	}
	if got := crc32.Checksum(indexBytes, crcTable); got != indexCRC {
		r.Close()
		return fmt.Errorf("container %s: index checksum mismatch (got 0x%08x, want 0x%08x)",
			f.path, got, indexCRC)
	}

	index, err := decodeIndex(indexBytes)
	if err != nil {
		r.Close()
		return fmt.Errorf("container %s: %w", f.path, err)
	}

	f.index = index
	f.reader = r
	return nil
}

// ReadAttribute implements Store.
func (f *File) ReadAttribute(uid core.UID, name string) ([]byte, error) {
	return f.read(entryKey{uid, name}, blockKindAttribute)
}

// WriteAttribute implements Store.
func (f *File) WriteAttribute(uid core.UID, name string, value []byte) error {
	return f.write(entryKey{uid, name}, blockKindAttribute, value)
}

// ReadArray implements Store.
func (f *File) ReadArray(uid core.UID, name string) ([]byte, error) {
	return f.read(entryKey{uid, name}, blockKindArray)
}

// WriteArray implements Store.
func (f *File) WriteArray(uid core.UID, name string, data []byte) error {
	return f.write(entryKey{uid, name}, blockKindArray, data)
}

// ReadArrayRange implements Store. With CompressionNone the range is
// read straight out of the mapped block; compressed blocks are decoded
// once and sliced.
func (f *File) ReadArrayRange(uid core.UID, name string, off, length int64) ([]byte, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("array %q of %s: negative range: %w", name, uid, core.ErrValue)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	key := entryKey{uid, name}
	if pw, ok := f.pending[key]; ok {
		if pw.tombstone || pw.kind != blockKindArray {
			return nil, fmt.Errorf("array %q of %s: %w", name, uid, core.ErrNotFound)
		}
		if off+length > int64(len(pw.buf)) {
			return nil, fmt.Errorf("array %q of %s: range out of bounds: %w", name, uid, core.ErrValue)
		}
		return cloneBytes(pw.buf[off : off+length]), nil
	}

	info, ok := f.index[key]
	if !ok || info.kind != blockKindArray {
		return nil, fmt.Errorf("array %q of %s: %w", name, uid, core.ErrNotFound)
	}
	if off+length > info.rawLen {
		return nil, fmt.Errorf("array %q of %s: range out of bounds: %w", name, uid, core.ErrValue)
	}

	if f.diskCompression == CompressionNone {
		// Raw block: serve the range without touching the rest.
		// Checksums are validated on full reads and on load.
		out := make([]byte, length)
		if length == 0 {
			return out, nil
		}
		if _, err := f.reader.ReadAt(out, info.offset+off); err != nil {
			return nil, fmt.Errorf("array %q of %s: %w", name, uid, err)
		}
		return out, nil
	}

	raw, err := f.readBlock(key, info)
	if err != nil {
		return nil, err
	}
	return raw[off : off+length], nil
}

// DeleteEntity implements Store.
func (f *File) DeleteEntity(uid core.UID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, info := range f.index {
		if k.uid == uid {
			f.pending[k] = &pendingWrite{kind: info.kind, tombstone: true}
		}
	}
	for k, pw := range f.pending {
		if k.uid == uid {
			pw.buf = nil
			pw.tombstone = true
		}
	}
	return nil
}

func (f *File) read(key entryKey, kind uint8) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if pw, ok := f.pending[key]; ok {
		if pw.tombstone || pw.kind != kind {
			return nil, fmt.Errorf("%q of %s: %w", key.name, key.uid, core.ErrNotFound)
		}
		return cloneBytes(pw.buf), nil
	}

	info, ok := f.index[key]
	if !ok || info.kind != kind {
		return nil, fmt.Errorf("%q of %s: %w", key.name, key.uid, core.ErrNotFound)
	}
	return f.readBlock(key, info)
}

// readBlock reads, verifies and decodes a whole block. Callers hold at
// least a read lock.
func (f *File) readBlock(key entryKey, info *blockInfo) ([]byte, error) {
	comp := make([]byte, info.compLen)
	if info.compLen > 0 {
		if _, err := f.reader.ReadAt(comp, info.offset); err != nil {
			return nil, fmt.Errorf("%q of %s: %w", key.name, key.uid, err)
		}
	}
	if got := crc32.Checksum(comp, crcTable); got != info.crc {
		return nil, fmt.Errorf("%q of %s: block checksum mismatch (got 0x%08x, want 0x%08x)",
			key.name, key.uid, got, info.crc)
	}
	return decompressBlock(f.diskCompression, comp, info.rawLen)
}

func (f *File) write(key entryKey, kind uint8, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	buf := cloneBytes(value)
	if buf == nil {
		buf = []byte{}
	}
	f.pending[key] = &pendingWrite{kind: kind, buf: buf}
	return nil
}

// Flush implements Store. The whole container is rewritten to a temp
// file and renamed over the old one, then remapped.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	if len(f.pending) == 0 && f.reader != nil && f.compression == f.diskCompression {
		return nil
	}

	// Assemble the surviving entry set: on-disk entries not overwritten
	// or tombstoned, plus pending writes.
	type flushEntry struct {
		key  entryKey
		kind uint8
		raw  []byte
	}
	var entries []flushEntry

	for key, info := range f.index {
		if _, dirty := f.pending[key]; dirty {
			continue
		}
		raw, err := f.readBlock(key, info)
		if err != nil {
			return err
		}
		entries = append(entries, flushEntry{key: key, kind: info.kind, raw: raw})
	}
	for key, pw := range f.pending {
		if pw.tombstone {
			continue
		}
		entries = append(entries, flushEntry{key: key, kind: pw.kind, raw: pw.buf})
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".geostore-flush-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicNumber)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	header[8] = byte(f.compression)
	if _, err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}

	newIndex := make(map[entryKey]*blockInfo, len(entries))
	offset := int64(headerSize)
	for _, e := range entries {
		comp, err := compressBlock(f.compression, e.raw)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.Write(comp); err != nil {
			tmp.Close()
			return err
		}
		newIndex[e.key] = &blockInfo{
			kind:    e.kind,
			offset:  offset,
			compLen: int64(len(comp)),
			rawLen:  int64(len(e.raw)),
			crc:     crc32.Checksum(comp, crcTable),
		}
		offset += int64(len(comp))
	}

	indexBytes := encodeIndex(newIndex)
	if _, err := w.Write(indexBytes); err != nil {
		tmp.Close()
		return err
	}

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(footer[0:8], uint64(offset))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(len(indexBytes)))
	binary.LittleEndian.PutUint32(footer[16:20], crc32.Checksum(indexBytes, crcTable))
	binary.LittleEndian.PutUint32(footer[20:24], MagicNumber)
	if _, err := w.Write(footer); err != nil {
		tmp.Close()
		return err
	}

	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return err
	}

	if f.reader != nil {
		if err := f.reader.Close(); err != nil {
			return err
		}
	}
	r, err := mmap.Open(f.path)
	if err != nil {
		return err
	}
	f.reader = r
	f.index = newIndex
	f.diskCompression = f.compression
	f.pending = make(map[entryKey]*pendingWrite)
	return nil
}

// Close implements Store.
func (f *File) Close() error {
	if err := f.Flush(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.reader != nil {
		err := f.reader.Close()
		f.reader = nil
		return err
	}
	return nil
}

func encodeIndex(index map[entryKey]*blockInfo) []byte {
	var buf bytes.Buffer
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], uint32(len(index)))
	buf.Write(scratch[:4])

	for key, info := range index {
		buf.Write(key.uid[:])
		buf.WriteByte(info.kind)
		binary.LittleEndian.PutUint16(scratch[:2], uint16(len(key.name)))
		buf.Write(scratch[:2])
		buf.WriteString(key.name)
		binary.LittleEndian.PutUint64(scratch[:8], uint64(info.offset))
		buf.Write(scratch[:8])
		binary.LittleEndian.PutUint64(scratch[:8], uint64(info.compLen))
		buf.Write(scratch[:8])
		binary.LittleEndian.PutUint64(scratch[:8], uint64(info.rawLen))
		buf.Write(scratch[:8])
		binary.LittleEndian.PutUint32(scratch[:4], info.crc)
		buf.Write(scratch[:4])
	}
	return buf.Bytes()
}

func decodeIndex(b []byte) (map[entryKey]*blockInfo, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("index section truncated")
	}
	count := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]

	index := make(map[entryKey]*blockInfo, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < 16+1+2 {
			return nil, fmt.Errorf("index entry %d truncated", i)
		}
		var key entryKey
		copy(key.uid[:], b[:16])
		kind := b[16]
		nameLen := int(binary.LittleEndian.Uint16(b[17:19]))
		b = b[19:]

		if len(b) < nameLen+28 {
			return nil, fmt.Errorf("index entry %d truncated", i)
		}
		key.name = string(b[:nameLen])
		b = b[nameLen:]

		index[key] = &blockInfo{
			kind:    kind,
			offset:  int64(binary.LittleEndian.Uint64(b[0:8])),
			compLen: int64(binary.LittleEndian.Uint64(b[8:16])),
			rawLen:  int64(binary.LittleEndian.Uint64(b[16:24])),
			crc:     binary.LittleEndian.Uint32(b[24:28]),
		}
		b = b[28:]
	}
	return index, nil
}
