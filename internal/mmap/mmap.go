// Package mmap memory-maps regular files read-only for the store reader.
// It is a thin wrapper around golang.org/x/sys/unix.
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a read-only memory mapping of a file's contents.
type Region struct {
	data []byte
}

// Open maps the full contents of the file at path read-only, shared.
// The file is opened and closed internally; the mapping stays live after
// Close returns since mmap retains its own reference to the underlying
// pages.
func Open(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &Region{data: nil}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Region{data: data}, nil
}

// Bytes returns the mapped region. It is only valid until Close.
func (r *Region) Bytes() []byte { return r.data }

// Close unmaps the region. Safe to call on a nil-data Region (empty file).
func (r *Region) Close() error {
	if r == nil || r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	return err
}
