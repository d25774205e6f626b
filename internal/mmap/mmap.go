package mmap

import (
	"errors"
	"io"
	"os"
)

// ErrInvalidSize is returned when the file size cannot be mapped.
var ErrInvalidSize = errors.New("mmap: invalid file size")

// File is a read-only view over a file. When the platform supports it,
// the view is a shared memory mapping; otherwise reads go through the
// file descriptor.
type File struct {
	data []byte
	f    *os.File
}

// Open opens path for reading and maps it into memory.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := fi.Size()
	if size < 0 {
		f.Close()
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &File{f: f}, nil
	}

	data, err := mapFile(f, int(size))
	if err != nil {
		// Mapping is an optimization; fall back to plain reads.
		return &File{f: f}, nil
	}

	return &File{data: data, f: f}, nil
}

// Size returns the size of the underlying file at open time.
func (m *File) Size() int64 {
	if m.data != nil {
		return int64(len(m.data))
	}
	fi, err := m.f.Stat()
	if err != nil {
		return 0
	}
	return fi.Size()
}

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.data == nil {
		return m.f.ReadAt(p, off)
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the view and closes the underlying file. Safe to call
// on a nil receiver.
func (m *File) Close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.data != nil {
		err = unmapFile(m.data)
		m.data = nil
	}
	if m.f != nil {
		if cerr := m.f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.f = nil
	}
	return err
}
