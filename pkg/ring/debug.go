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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/shm-ring/pkg/shm"
)

// Detail describes a ring file as found on disk.
type Detail struct {
	Path        string
	RegionSize  int64
	Capacity    int64
	SlotSize    int64
	Stride      int64
	ProducerSeq uint64
	ConsumerSeq uint64
	Lag         uint64
}

func (d Detail) String() string {
	return fmt.Sprintf("path:%s size:%d cap:%d slot:%d stride:%d producer:%d consumer:%d lag:%d",
		d.Path, d.RegionSize, d.Capacity, d.SlotSize, d.Stride, d.ProducerSeq, d.ConsumerSeq, d.Lag)
}

// ReadDetail reads the ring header and counters of the file at path without
// mapping it. The values are a snapshot and may be torn if the ring is in use.
func ReadDetail(path string) (Detail, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Detail{}, err
	}
	size, err := shm.ParseRegionHeader(raw)
	if err != nil {
		return Detail{}, err
	}
	mem := raw[shm.RegionHeaderSize : shm.RegionHeaderSize+size]
	if int64(len(mem)) < slotsOffset {
		return Detail{}, fmt.Errorf("%w: region of %d bytes cannot hold a ring header", ErrInvalidHeader, len(mem))
	}
	order := binary.NativeEndian
	if m := order.Uint32(mem[headerMagicOffset:]); m != RingMagic {
		return Detail{}, fmt.Errorf("%w: bad magic %#x", ErrInvalidHeader, m)
	}
	if v := order.Uint32(mem[headerVersionOffset:]); v != LayoutVersion {
		return Detail{}, fmt.Errorf("%w: layout version %d, expected %d", ErrInvalidHeader, v, LayoutVersion)
	}
	d := Detail{
		Path:        path,
		RegionSize:  size,
		Capacity:    int64(order.Uint64(mem[headerCapacityOffset:])),
		SlotSize:    int64(order.Uint64(mem[headerSlotSizeOffset:])),
		Stride:      int64(order.Uint64(mem[headerStrideOffset:])),
		ProducerSeq: order.Uint64(mem[ProducerSequenceOffset():]),
		ConsumerSeq: order.Uint64(mem[ConsumerSequenceOffset():]),
	}
	if d.ProducerSeq > d.ConsumerSeq {
		d.Lag = d.ProducerSeq - d.ConsumerSeq
	}
	return d, nil
}

// FileStats reports the stats of the ring file it names, read with ReadDetail
// on every call. It lets tools watch a ring without joining it. Wraps, torn
// reads and waits are only known to the processes using the ring and stay
// zero; Wrapped is set when the lag exceeds the capacity.
type FileStats string

func (f FileStats) Stats() Stats {
	s := Stats{Name: string(f)}
	d, err := ReadDetail(string(f))
	if err != nil {
		return s
	}
	s.Capacity = d.Capacity
	s.SlotSize = int(d.SlotSize)
	s.Published = d.ProducerSeq
	s.Polled = d.ConsumerSeq
	s.Lag = d.Lag
	s.Wrapped = d.Lag > uint64(d.Capacity)
	return s
}

// DebugRingDetail writes the state of the ring file at path to w.
func DebugRingDetail(w io.Writer, path string) error {
	d, err := ReadDetail(path)
	if err != nil {
		return err
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = fmt.Fprintf(buf, "ring %s\n", d.Path)
	_, _ = fmt.Fprintf(buf, "  region size: %d\n", d.RegionSize)
	_, _ = fmt.Fprintf(buf, "  capacity:    %d\n", d.Capacity)
	_, _ = fmt.Fprintf(buf, "  slot size:   %d (stride %d)\n", d.SlotSize, d.Stride)
	_, _ = fmt.Fprintf(buf, "  producer:    %d\n", d.ProducerSeq)
	_, _ = fmt.Fprintf(buf, "  consumer:    %d\n", d.ConsumerSeq)
	_, _ = fmt.Fprintf(buf, "  lag:         %d\n", d.Lag)
	_, err = buf.WriteTo(w)
	return err
}
