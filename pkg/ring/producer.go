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
	"context"

	"github.com/srediag/shm-ring/api"
)

// Producer writes records into a ring. It is the only writer of the producer
// sequence and of the slots.
type Producer struct {
	r      *ring
	policy Policy
	wait   WaitStrategy

	// next is the sequence the next claimed slot gets, published the last
	// sequence made visible to the consumer. Slots in [published, next) are
	// the pending batch.
	next          uint64
	published     uint64
	consumerCache uint64
}

var _ api.Producer = (*Producer)(nil)

// NewProducer opens the producer side of the ring described by config,
// creating the ring if it does not exist yet. A producer attaching to an
// existing ring resumes from its published sequence.
func NewProducer(ctx context.Context, config *Config) (*Producer, error) {
	r, err := openRing(ctx, config, "producer")
	if err != nil {
		return nil, err
	}
	wait := config.Wait
	if wait == nil {
		wait = BusySpin{}
	}
	seq := r.producerSeq.Get()
	p := &Producer{
		r:             r,
		policy:        config.Policy,
		wait:          wait,
		next:          seq,
		published:     seq,
		consumerCache: r.consumerSeq.Get(),
	}
	internalLogger.Debugf("producer %s opened at sequence %d, %s", r.name, seq, config.Policy)
	return p, nil
}

// NewBlockingProducer opens a blocking producer on the file at path. A zero
// capacity means DefaultCapacity.
func NewBlockingProducer(ctx context.Context, path string, capacity int64, slotSize int) (*Producer, error) {
	return NewProducer(ctx, pathConfig(path, capacity, slotSize, Blocking))
}

// NewNonBlockingProducer opens a producer that never waits and overwrites
// records the consumer did not read in time.
func NewNonBlockingProducer(ctx context.Context, path string, capacity int64, slotSize int) (*Producer, error) {
	return NewProducer(ctx, pathConfig(path, capacity, slotSize, NonBlocking))
}

func pathConfig(path string, capacity int64, slotSize int, policy Policy) *Config {
	config := DefaultConfig()
	config.Path = path
	if capacity > 0 {
		config.Capacity = capacity
	}
	config.SlotSize = slotSize
	config.Policy = policy
	return config
}

// Next returns the payload of the next slot, to be filled in place. The record
// becomes visible to the consumer on the next Flush.
//
// A blocking producer waits while the ring is full, with no timeout. If the
// pending batch alone fills the ring it is flushed first, otherwise the
// consumer could never free a slot.
func (p *Producer) Next() []byte {
	if p.policy == Blocking && p.full() {
		if p.next-p.published >= p.r.layout.capacity {
			p.Flush()
		}
		p.r.waits.Add(1)
		for p.full() {
			p.wait.Wait()
		}
		p.wait.Reset()
	}
	return p.claim()
}

// TryNext is Next without waiting. It reports false when a blocking ring is
// full; a non-blocking producer always succeeds.
func (p *Producer) TryNext() ([]byte, bool) {
	if p.policy == Blocking && p.full() {
		return nil, false
	}
	return p.claim(), true
}

// NextContext is Next with a wait bounded by ctx.
func (p *Producer) NextContext(ctx context.Context) ([]byte, error) {
	if p.r.isClosed() {
		return nil, ErrClosed
	}
	if p.policy == Blocking && p.full() {
		if p.next-p.published >= p.r.layout.capacity {
			p.Flush()
		}
		p.r.waits.Add(1)
		for p.full() {
			if err := ctx.Err(); err != nil {
				p.wait.Reset()
				return nil, err
			}
			p.wait.Wait()
		}
		p.wait.Reset()
	}
	return p.claim(), nil
}

// full reports whether the next slot still holds a record the consumer has
// not released. The cached consumer sequence is refreshed only when it says
// the ring is full.
func (p *Producer) full() bool {
	if p.next-p.consumerCache < p.r.layout.capacity {
		return false
	}
	p.consumerCache = p.r.consumerSeq.Get()
	return p.next-p.consumerCache >= p.r.layout.capacity
}

func (p *Producer) claim() []byte {
	seq := p.next
	p.r.unseal(seq)
	p.next++
	return p.r.payload(seq)
}

// Flush publishes every slot claimed since the previous Flush with a single
// release store of the producer sequence. It is a no-op when nothing is
// pending.
func (p *Producer) Flush() {
	if p.next == p.published {
		return
	}
	start := p.published
	// a non-blocking batch longer than the ring overwrote its own head
	if p.next-start > p.r.layout.capacity {
		start = p.next - p.r.layout.capacity
	}
	for seq := start; seq < p.next; seq++ {
		p.r.seal(seq)
	}
	p.r.producerSeq.Set(p.next)
	p.published = p.next
}

// Pending returns the number of claimed slots not flushed yet.
func (p *Producer) Pending() int {
	return int(p.next - p.published)
}

// Sequence returns the published producer sequence: the number of records
// made visible to the consumer since the ring was created.
func (p *Producer) Sequence() uint64 {
	return p.published
}

// Capacity returns the number of slots of the ring.
func (p *Producer) Capacity() int64 {
	return p.r.layout.Capacity()
}

// SlotSize returns the size of a record.
func (p *Producer) SlotSize() int {
	return p.r.layout.SlotSize()
}

// Policy returns the producer policy.
func (p *Producer) Policy() Policy {
	return p.policy
}

// Stats returns a snapshot of the ring counters. It may be called from any
// goroutine.
func (p *Producer) Stats() Stats {
	return p.r.stats()
}

// Close releases the producer. Pending slots are not flushed. With delete set,
// a ring opened from a path also removes its backing file. The producer must
// not be used after Close; closing twice is a no-op.
func (p *Producer) Close(delete bool) error {
	if pending := p.Pending(); pending > 0 && !p.r.isClosed() {
		internalLogger.Debugf("producer %s closed with %d unflushed slot(s)", p.r.name, pending)
	}
	return p.r.close(delete)
}
