// Package mmap provides read-only memory-mapped file access.
//
// The container file reader uses it to serve range reads out of large
// packed buffers without copying whole datasets through the heap.
//
// On unix platforms the mapping uses mmap(2); on other platforms Open
// falls back to ordinary pread-style file access behind the same API.
package mmap
