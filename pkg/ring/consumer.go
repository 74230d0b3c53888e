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
	"sync/atomic"

	"github.com/srediag/shm-ring/api"
)

// Consumer reads records from a ring. It is the only writer of the consumer
// sequence.
type Consumer struct {
	r      *ring
	policy Policy

	// cursor is the next sequence to poll, limit the producer sequence seen by
	// the last AvailableToPoll and done the last sequence handed back with
	// DonePolling.
	cursor uint64
	limit  uint64
	done   uint64
	state  atomic.Int32
}

var _ api.Consumer = (*Consumer)(nil)

// NewConsumer opens the consumer side of the ring described by config,
// creating the ring if it does not exist yet. A consumer attaching to an
// existing ring resumes after the last sequence its predecessor handed back
// with DonePolling.
func NewConsumer(ctx context.Context, config *Config) (*Consumer, error) {
	r, err := openRing(ctx, config, "consumer")
	if err != nil {
		return nil, err
	}
	seq := r.consumerSeq.Get()
	c := &Consumer{
		r:      r,
		policy: config.Policy,
		cursor: seq,
		limit:  seq,
		done:   seq,
	}
	internalLogger.Debugf("consumer %s opened at sequence %d, %s", r.name, seq, config.Policy)
	return c, nil
}

// NewBlockingConsumer opens a consumer of a blocking ring on the file at path.
// A zero capacity means DefaultCapacity.
func NewBlockingConsumer(ctx context.Context, path string, capacity int64, slotSize int) (*Consumer, error) {
	return NewConsumer(ctx, pathConfig(path, capacity, slotSize, Blocking))
}

// NewNonBlockingConsumer opens a consumer of a non-blocking ring on the file at
// path.
func NewNonBlockingConsumer(ctx context.Context, path string, capacity int64, slotSize int) (*Consumer, error) {
	return NewConsumer(ctx, pathConfig(path, capacity, slotSize, NonBlocking))
}

// AvailableToPoll returns how many records were published past the consumer
// position, and fixes that many as the batch Poll may read. It returns
// WrappedCount when the producer got more than a ring ahead: the records in
// between are lost and the consumer stays in the Wrapped state until Resync.
func (c *Consumer) AvailableToPoll() int64 {
	if c.State() == Wrapped {
		return WrappedCount
	}
	seq := c.r.producerSeq.Get()
	avail := seq - c.cursor
	if avail > c.r.layout.capacity {
		c.wrap()
		internalLogger.Debugf("consumer %s wrapped at %d, producer at %d", c.r.name, c.cursor, seq)
		return WrappedCount
	}
	c.limit = seq
	if avail > 0 {
		c.setState(Polling)
	}
	return int64(avail)
}

// Poll returns the payload of the next record of the batch, in place. The view
// stays valid until DonePolling; a non-blocking producer may still overwrite
// it, use PollCopy when that matters. Poll returns ErrTornRead if the slot no
// longer holds the expected record and ErrNothingToPoll past the end of the
// batch.
func (c *Consumer) Poll() ([]byte, error) {
	seq, err := c.poll()
	if err != nil {
		return nil, err
	}
	payload := c.r.payload(seq)
	if !c.r.verify(seq, payload) {
		c.torn(seq)
		return nil, ErrTornRead
	}
	c.advance()
	return payload, nil
}

// PollCopy copies the next record of the batch into dst and returns the number
// of bytes copied. The seal is checked again after the copy, so a nil error
// means dst holds an intact record.
func (c *Consumer) PollCopy(dst []byte) (int, error) {
	seq, err := c.poll()
	if err != nil {
		return 0, err
	}
	payload := c.r.payload(seq)
	if !c.r.verify(seq, payload) {
		c.torn(seq)
		return 0, ErrTornRead
	}
	n := copy(dst, payload)
	if !c.r.sealed(seq) {
		c.torn(seq)
		return 0, ErrTornRead
	}
	c.advance()
	return n, nil
}

func (c *Consumer) poll() (uint64, error) {
	if c.State() == Wrapped {
		return 0, ErrWrapped
	}
	if c.cursor >= c.limit {
		return 0, ErrNothingToPoll
	}
	return c.cursor, nil
}

func (c *Consumer) advance() {
	c.cursor++
	if c.cursor == c.limit {
		c.setState(Draining)
	}
}

func (c *Consumer) wrap() {
	c.setState(Wrapped)
	c.r.wraps.Add(1)
}

func (c *Consumer) torn(seq uint64) {
	c.setState(Wrapped)
	c.r.tornReads.Add(1)
	internalLogger.Debugf("consumer %s torn read at sequence %d", c.r.name, seq)
}

// DonePolling hands the slots read so far back to the producer. A blocking
// producer may reuse them from now on; for a non-blocking ring the consumer
// sequence is a bookmark for a consumer that attaches later.
func (c *Consumer) DonePolling() {
	if c.cursor != c.done {
		c.r.consumerSeq.Set(c.cursor)
		c.done = c.cursor
	}
	if c.State() != Wrapped {
		c.setState(Idle)
	}
}

// Resync recovers from the Wrapped state by skipping to the current producer
// sequence. It returns the number of records skipped.
func (c *Consumer) Resync() uint64 {
	seq := c.r.producerSeq.Get()
	var skipped uint64
	if seq > c.cursor {
		skipped = seq - c.cursor
	}
	c.cursor, c.limit, c.done = seq, seq, seq
	c.r.consumerSeq.Set(seq)
	c.setState(Idle)
	internalLogger.Infof("consumer %s resynced to %d, %d record(s) skipped", c.r.name, seq, skipped)
	return skipped
}

// State returns the poll state. It may be called from any goroutine.
func (c *Consumer) State() ConsumerState {
	return ConsumerState(c.state.Load())
}

func (c *Consumer) setState(s ConsumerState) {
	c.state.Store(int32(s))
}

// Sequence returns the sequence of the next record to poll.
func (c *Consumer) Sequence() uint64 {
	return c.cursor
}

// Lag returns how many published records were not handed back yet.
func (c *Consumer) Lag() uint64 {
	return c.r.stats().Lag
}

// Capacity returns the number of slots of the ring.
func (c *Consumer) Capacity() int64 {
	return c.r.layout.Capacity()
}

// SlotSize returns the size of a record.
func (c *Consumer) SlotSize() int {
	return c.r.layout.SlotSize()
}

// Policy returns the policy the consumer was opened with.
func (c *Consumer) Policy() Policy {
	return c.policy
}

// Stats returns a snapshot of the ring counters. It may be called from any
// goroutine.
func (c *Consumer) Stats() Stats {
	s := c.r.stats()
	s.Wrapped = c.State() == Wrapped
	return s
}

// Close releases the consumer. With delete set, a ring opened from a path also
// removes its backing file. The consumer must not be used after Close;
// closing twice is a no-op.
func (c *Consumer) Close(delete bool) error {
	return c.r.close(delete)
}
