//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package shm

import (
	"context"
)

// MapRegion maps or creates a shared memory region (unsupported platforms).
func MapRegion(ctx context.Context, opts MapOptions) (*MappedRegion, error) {
	return nil, ErrUnsupported
}

// UnmapRegion unmaps and closes the shared memory region (unsupported platforms).
func UnmapRegion(ctx context.Context, region *MappedRegion) error {
	return ErrUnsupported
}

// RemoveRegion unlinks the backing file (unsupported platforms).
func RemoveRegion(path string) error {
	return ErrUnsupported
}
