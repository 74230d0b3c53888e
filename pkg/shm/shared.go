/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	internalshm "github.com/srediag/shm-ring/internal/shm"
)

// Region header layout. The header precedes the usable area of every shared
// region and is never visible through the Memory accessors.
const (
	RegionHeaderSize    = CacheLineSize
	regionSizeOffset    = 0
	regionMagicOffset   = 8
	regionVersionOffset = 12

	// RegionMagic is "SHMR" in little-endian byte order.
	RegionMagic   uint32 = 0x524d4853
	RegionVersion uint32 = 1

	// DefaultAttachTimeout bounds how long Open waits for another process to
	// finish creating the region.
	DefaultAttachTimeout = 5 * time.Second
)

var errNotReady = errors.New("shm: region not initialized yet")

// OpenOptions defines options for creating or attaching to a shared region.
type OpenOptions struct {
	// Path of the backing file, typically under /dev/shm.
	Path string
	// Size is the number of usable bytes to create. It is ignored when the
	// region already exists; the size recorded in its header wins.
	Size int64
	// AttachTimeout bounds the wait for a region being created concurrently
	// by another process. Zero means DefaultAttachTimeout.
	AttachTimeout time.Duration
}

// SharedMemory is a Memory backed by a memory-mapped file.
type SharedMemory struct {
	view
	region  *internalshm.MappedRegion
	path    string
	created bool
	closed  atomic.Bool
}

var _ Memory = (*SharedMemory)(nil)

// Open creates the region at opts.Path or attaches to it if it exists.
//
// The creating side zero-fills the region and writes its size into the header;
// the magic word is stored last, so an attaching side that observes it also
// observes a complete header. Attaching never writes the header.
func Open(ctx context.Context, opts OpenOptions) (*SharedMemory, error) {
	if opts.Path == "" {
		return nil, errors.New("shm: empty path")
	}
	if opts.Size < 0 {
		return nil, ErrInvalidSize
	}
	timeout := opts.AttachTimeout
	if timeout <= 0 {
		timeout = DefaultAttachTimeout
	}

	var mem *SharedMemory
	op := func() error {
		var err error
		if opts.Size > 0 {
			mem, err = create(ctx, opts.Path, opts.Size)
			if err == nil {
				return nil
			}
			if !errors.Is(err, internalshm.ErrExist) {
				return backoff.Permanent(err)
			}
		}
		mem, err = attach(ctx, opts.Path)
		if err != nil && (errors.Is(err, ErrInvalidRegion) || errors.Is(err, context.Canceled)) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = timeout
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("open shared memory %s: %w", opts.Path, err)
	}

	addRegionRef(mem.path, 1)
	if mem.created {
		internalLogger.Infof("created shared memory %s, size %d", mem.path, mem.Size())
	} else {
		internalLogger.Infof("attached shared memory %s, size %d", mem.path, mem.Size())
	}
	return mem, nil
}

func create(ctx context.Context, path string, size int64) (*SharedMemory, error) {
	total := RegionHeaderSize + size
	if !internalshm.CanCreateOnDevShm(uint64(total), path) {
		return nil, fmt.Errorf("%w: path %s, size %d", ErrNoSpace, path, total)
	}
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{
		Path:   path,
		Size:   int(total),
		Create: true,
	})
	if err != nil {
		return nil, err
	}
	// a freshly truncated file reads as zeros, so only the header is written
	hdr := view{data: region.Addr[:RegionHeaderSize]}
	hdr.PutUint64(regionSizeOffset, uint64(size))
	hdr.PutUint32(regionVersionOffset, RegionVersion)
	hdr.PutUint32Volatile(regionMagicOffset, RegionMagic)
	return &SharedMemory{
		view:    view{data: region.Addr[RegionHeaderSize:total:total]},
		region:  region,
		path:    path,
		created: true,
	}, nil
}

func attach(ctx context.Context, path string) (*SharedMemory, error) {
	region, err := internalshm.MapRegion(ctx, internalshm.MapOptions{Path: path})
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*SharedMemory, error) {
		_ = internalshm.UnmapRegion(ctx, region)
		return nil, err
	}
	if region.Size() < RegionHeaderSize {
		return fail(errNotReady)
	}
	hdr := view{data: region.Addr[:RegionHeaderSize]}
	if hdr.GetUint32Volatile(regionMagicOffset) != RegionMagic {
		return fail(errNotReady)
	}
	if v := hdr.GetUint32(regionVersionOffset); v != RegionVersion {
		return fail(fmt.Errorf("%w: version %d, expected %d", ErrInvalidRegion, v, RegionVersion))
	}
	size := int64(hdr.GetUint64(regionSizeOffset))
	total := RegionHeaderSize + size
	if size <= 0 || total > int64(region.Size()) {
		return fail(fmt.Errorf("%w: recorded size %d, file size %d", ErrInvalidRegion, size, region.Size()))
	}
	return &SharedMemory{
		view:   view{data: region.Addr[RegionHeaderSize:total:total]},
		region: region,
		path:   path,
	}, nil
}

// Path returns the backing file path.
func (m *SharedMemory) Path() string {
	return m.path
}

// Created reports whether this handle created the region, as opposed to
// attaching to an existing one.
func (m *SharedMemory) Created() bool {
	return m.created
}

// Close unmaps the region. With delete set the backing file is removed as
// well, unless another handle in this process still maps it. Failing to remove
// the file is logged and otherwise ignored.
func (m *SharedMemory) Close(delete bool) error {
	if m.closed.Swap(true) {
		return nil
	}
	remaining := releaseRegionRef(m.path)
	m.data = nil
	err := internalshm.UnmapRegion(context.Background(), m.region)
	if err != nil {
		internalLogger.Warnf("shared memory %s unmap error: %v", m.path, err)
	}
	if !delete {
		return err
	}
	if remaining > 0 {
		internalLogger.Warnf("shared memory %s still mapped by %d handle(s) in this process, not removing", m.path, remaining)
		return err
	}
	if rerr := internalshm.RemoveRegion(m.path); rerr != nil {
		internalLogger.Warnf("shared memory remove file:%s failed, error=%v", m.path, rerr)
	} else {
		internalLogger.Infof("shared memory remove file:%s", m.path)
	}
	return err
}

// ParseRegionHeader validates the region header at the start of raw, the
// content of a region file read without mapping it, and returns the usable
// size it records.
func ParseRegionHeader(raw []byte) (int64, error) {
	if len(raw) < RegionHeaderSize {
		return 0, fmt.Errorf("%w: %d bytes is shorter than the header", ErrInvalidRegion, len(raw))
	}
	hdr := view{data: raw[:RegionHeaderSize:RegionHeaderSize]}
	if m := hdr.GetUint32(regionMagicOffset); m != RegionMagic {
		return 0, fmt.Errorf("%w: bad magic %#x", ErrInvalidRegion, m)
	}
	if v := hdr.GetUint32(regionVersionOffset); v != RegionVersion {
		return 0, fmt.Errorf("%w: version %d, expected %d", ErrInvalidRegion, v, RegionVersion)
	}
	size := int64(hdr.GetUint64(regionSizeOffset))
	if size <= 0 || RegionHeaderSize+size > int64(len(raw)) {
		return 0, fmt.Errorf("%w: recorded size %d, file size %d", ErrInvalidRegion, size, len(raw))
	}
	return size, nil
}
