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

package ring

import (
	"fmt"

	"github.com/srediag/shm-ring/pkg/shm"
)

// Ring header layout, relative to the start of the Memory:
//
//	0    magic     uint32  "RING", stored last by the initializing side
//	4    version   uint32
//	8    capacity  uint64  slot count
//	16   slot size uint64  payload bytes per slot
//	24   stride    uint64  bytes between two slots
//	64   producer sequence, padded counter (value at 128)
//	256  consumer sequence, padded counter (value at 320)
//	448  slot 0
//
// Each slot is a 16-byte seal (sequence+1, checksum) followed by the payload.
const (
	headerMagicOffset    = 0
	headerVersionOffset  = 4
	headerCapacityOffset = 8
	headerSlotSizeOffset = 16
	headerStrideOffset   = 24

	producerCounterOffset = shm.CacheLineSize
	consumerCounterOffset = producerCounterOffset + shm.PaddedCounterSize
	slotsOffset           = consumerCounterOffset + shm.PaddedCounterSize

	sealSize      = 16
	sealSeqOffset = 0
	sealSumOffset = 8

	// RingMagic is "RING" in little-endian byte order.
	RingMagic     uint32 = 0x474e4952
	LayoutVersion uint32 = 1

	ringInitializing uint32 = 1

	// DefaultCapacity is the slot count used when none is configured.
	DefaultCapacity = 1024
)

// Layout computes where slots live for a given capacity and slot size. Both
// sides of a ring must use the same slot size; the capacity is recovered from
// the header by whichever side attaches second.
type Layout struct {
	capacity uint64
	mask     uint64
	pow2     bool
	slotSize int64
	stride   int64
}

// NewLayout validates capacity and slotSize. A power-of-two capacity lets
// slot indexing use a mask instead of a modulo.
func NewLayout(capacity int64, slotSize int) (Layout, error) {
	if capacity < 1 {
		return Layout{}, fmt.Errorf("%w: capacity %d must be at least 1", ErrInvalidConfig, capacity)
	}
	if slotSize <= 0 {
		return Layout{}, fmt.Errorf("%w: slot size %d must be positive", ErrInvalidConfig, slotSize)
	}
	c := uint64(capacity)
	return Layout{
		capacity: c,
		mask:     c - 1,
		pow2:     c&(c-1) == 0,
		slotSize: int64(slotSize),
		stride:   align8(sealSize + int64(slotSize)),
	}, nil
}

func align8(n int64) int64 {
	return (n + 7) &^ 7
}

// Capacity returns the number of slots.
func (l Layout) Capacity() int64 { return int64(l.capacity) }

// SlotSize returns the payload bytes available in each slot.
func (l Layout) SlotSize() int { return int(l.slotSize) }

// Stride returns the distance in bytes between two consecutive slots.
func (l Layout) Stride() int64 { return l.stride }

// Size returns the number of bytes the ring occupies.
func (l Layout) Size() int64 {
	return slotsOffset + int64(l.capacity)*l.stride
}

// Index maps a sequence number to its slot index.
func (l Layout) Index(seq uint64) uint64 {
	if l.pow2 {
		return seq & l.mask
	}
	return seq % l.capacity
}

// SlotOffset returns the offset of the seal of the slot holding seq.
func (l Layout) SlotOffset(seq uint64) int64 {
	return slotsOffset + int64(l.Index(seq))*l.stride
}

// PayloadOffset returns the offset of the payload of the slot holding seq.
func (l Layout) PayloadOffset(seq uint64) int64 {
	return l.SlotOffset(seq) + sealSize
}

// ProducerSequenceOffset and ConsumerSequenceOffset return where the two
// counter values live; they are exposed for diagnostics.
func ProducerSequenceOffset() int64 { return producerCounterOffset + shm.CacheLineSize }

func ConsumerSequenceOffset() int64 { return consumerCounterOffset + shm.CacheLineSize }
