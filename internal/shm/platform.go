// Package shm contains the platform-specific mapping primitive used by the
// shared memory regions in pkg/shm.
package shm

import (
	"errors"
)

var (
	// ErrUnsupported is returned on platforms without a file-backed mmap implementation.
	ErrUnsupported = errors.New("shm: shared memory mapping not supported on this platform")
	// ErrExist is returned by MapRegion with Create set when the backing file already exists.
	ErrExist = errors.New("shm: region already exists")
)

// MappedRegion represents a memory-mapped, file-backed shared region.
type MappedRegion struct {
	Addr    []byte
	Path    string
	Created bool
	fd      int
}

// Size returns the mapped length in bytes.
func (r *MappedRegion) Size() int {
	return len(r.Addr)
}

// MapOptions defines options for mapping shared memory.
type MapOptions struct {
	Path string
	// Size is the file length to create. It is ignored when attaching; the
	// whole existing file is mapped instead.
	Size int
	// Create requests exclusive creation. MapRegion fails with ErrExist if the
	// file is already there.
	Create bool
	Perm   uint32
}

// Function implementations are provided in platform-specific files (platform_unix.go, platform_other.go).
