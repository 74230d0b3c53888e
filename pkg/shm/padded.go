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

import "fmt"

// PaddedCounterSize is the footprint of a PaddedCounter: one padding line, the
// line holding the value and one more padding line.
const PaddedCounterSize = 3 * CacheLineSize

// PaddedCounter is a 64-bit counter stored inside a Memory with a full cache
// line of padding on each side.
//
// The stored word is value+valueOffset. A non-zero valueOffset lets a reader
// tell a counter that was never written (zero-filled memory) apart from one
// that holds zero.
type PaddedCounter struct {
	mem         Memory
	address     int64
	valueOffset uint64
}

// NewPaddedCounter places a counter in the PaddedCounterSize bytes starting at
// offset, which must be cache-line aligned.
func NewPaddedCounter(mem Memory, offset int64, valueOffset uint64) *PaddedCounter {
	if offset%CacheLineSize != 0 {
		panic(fmt.Sprintf("shm: padded counter offset %d is not cache-line aligned", offset))
	}
	if offset+PaddedCounterSize > mem.Size() {
		panic(fmt.Sprintf("shm: padded counter at %d does not fit in %d bytes", offset, mem.Size()))
	}
	return &PaddedCounter{
		mem:         mem,
		address:     offset + CacheLineSize,
		valueOffset: valueOffset,
	}
}

// Get is an acquire load of the counter.
func (c *PaddedCounter) Get() uint64 {
	return c.mem.GetUint64Volatile(c.address) - c.valueOffset
}

// Set is a release store of the counter.
func (c *PaddedCounter) Set(v uint64) {
	c.mem.PutUint64Volatile(c.address, v+c.valueOffset)
}

// Initialized reports whether the counter was ever written. It is only
// meaningful with a non-zero valueOffset.
func (c *PaddedCounter) Initialized() bool {
	return c.mem.GetUint64Volatile(c.address) != 0
}

// Address returns the offset of the 8-byte value inside the Memory.
func (c *PaddedCounter) Address() int64 {
	return c.address
}
