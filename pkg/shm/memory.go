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
	"errors"
	"fmt"
	"unsafe"

	"github.com/srediag/shm-ring/internal/logger"
	internalshm "github.com/srediag/shm-ring/internal/shm"
)

// CacheLineSize is the cache line size the layouts are padded for.
const CacheLineSize = 64

var (
	ErrClosed        = errors.New("shm: memory closed")
	ErrInvalidRegion = errors.New("shm: invalid region header")
	ErrNoSpace       = errors.New("shm: not enough space left to create region")
	ErrInvalidSize   = errors.New("shm: invalid region size")
)

var internalLogger = logger.New("shm", nil)

// Memory is an addressable, fixed-size block of bytes.
//
// Offsets are relative to the first usable byte. The Volatile accessors are
// atomic; a Put*Volatile is a release store and a Get*Volatile an acquire load,
// which is what establishes visibility between the two parties of a ring.
// 64-bit accesses must be 8-byte aligned, 32-bit accesses 4-byte aligned.
type Memory interface {
	// Size returns the number of usable bytes.
	Size() int64
	// Pointer returns the address of the byte at offset.
	Pointer(offset int64) unsafe.Pointer
	// Bytes returns a zero-copy view of n bytes starting at offset.
	Bytes(offset, n int64) []byte

	GetUint32(offset int64) uint32
	PutUint32(offset int64, v uint32)
	GetUint32Volatile(offset int64) uint32
	PutUint32Volatile(offset int64, v uint32)

	GetUint64(offset int64) uint64
	PutUint64(offset int64, v uint64)
	GetUint64Volatile(offset int64) uint64
	PutUint64Volatile(offset int64, v uint64)

	// Close releases the memory. When delete is true a file-backed region
	// also removes its backing file. Calling Close more than once is a no-op;
	// any other access after Close panics with an error wrapping ErrClosed.
	Close(delete bool) error
}

// view implements the accessors of Memory over a byte slice.
type view struct {
	data []byte
}

func (v *view) Size() int64 {
	return int64(len(v.data))
}

// check panics with an error wrapping ErrClosed once the memory is closed.
func (v *view) check(offset, width int64) {
	if v.data == nil {
		panic(fmt.Errorf("%w: access at offset %d", ErrClosed, offset))
	}
	if offset < 0 || offset+width > int64(len(v.data)) {
		panic(fmt.Sprintf("shm: access [%d,%d) out of range [0,%d)", offset, offset+width, len(v.data)))
	}
}

func (v *view) ptr(offset, width int64) unsafe.Pointer {
	v.check(offset, width)
	return unsafe.Pointer(&v.data[offset])
}

func (v *view) Pointer(offset int64) unsafe.Pointer {
	return v.ptr(offset, 1)
}

func (v *view) Bytes(offset, n int64) []byte {
	v.check(offset, n)
	return v.data[offset : offset+n : offset+n]
}

func (v *view) GetUint32(offset int64) uint32 {
	return *(*uint32)(v.ptr(offset, 4))
}

func (v *view) PutUint32(offset int64, val uint32) {
	*(*uint32)(v.ptr(offset, 4)) = val
}

func (v *view) GetUint32Volatile(offset int64) uint32 {
	return internalshm.AtomicLoadUint32(v.ptr(offset, 4))
}

func (v *view) PutUint32Volatile(offset int64, val uint32) {
	internalshm.AtomicStoreUint32(v.ptr(offset, 4), val)
}

func (v *view) GetUint64(offset int64) uint64 {
	return *(*uint64)(v.ptr(offset, 8))
}

func (v *view) PutUint64(offset int64, val uint64) {
	*(*uint64)(v.ptr(offset, 8)) = val
}

func (v *view) GetUint64Volatile(offset int64) uint64 {
	return internalshm.AtomicLoadUint64(v.ptr(offset, 8))
}

func (v *view) PutUint64Volatile(offset int64, val uint64) {
	internalshm.AtomicStoreUint64(v.ptr(offset, 8), val)
}
