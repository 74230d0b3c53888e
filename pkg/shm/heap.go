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
	"sync/atomic"
	"unsafe"
)

// HeapMemory is a process-local Memory aligned to a cache line.
type HeapMemory struct {
	view
	backing []uint64
	closed  atomic.Bool
}

var _ Memory = (*HeapMemory)(nil)

// NewHeapMemory allocates size zeroed bytes. It panics if size is not positive.
func NewHeapMemory(size int64) *HeapMemory {
	if size <= 0 {
		panic("shm: heap memory size must be positive")
	}
	// []uint64 guarantees 8-byte alignment; the extra line lets us slide the
	// start to a cache line boundary.
	words := (size+CacheLineSize)/8 + 1
	backing := make([]uint64, words)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), words*8)
	shift := (CacheLineSize - int64(uintptr(unsafe.Pointer(&raw[0]))%CacheLineSize)) % CacheLineSize
	return &HeapMemory{
		view:    view{data: raw[shift : shift+size : shift+size]},
		backing: backing,
	}
}

// Close drops the reference to the backing array. delete has no meaning for
// process-local memory.
func (m *HeapMemory) Close(delete bool) error {
	if m.closed.Swap(true) {
		return nil
	}
	m.data = nil
	m.backing = nil
	return nil
}
