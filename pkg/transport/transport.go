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
// Package transport sends variable-length messages over a ring. Each message
// fills one slot: a 4-byte length followed by the payload, so a message can be
// at most the slot size minus 4 bytes.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/srediag/shm-ring/api"
	"github.com/srediag/shm-ring/pkg/ring"
)

const frameHeaderSize = 4

var (
	ErrTooLarge     = errors.New("transport: message larger than slot")
	ErrCorruptFrame = errors.New("transport: corrupt frame length")
)

// MaxMessageSize returns the largest message a slot of slotSize bytes holds.
func MaxMessageSize(slotSize int) int {
	return slotSize - frameHeaderSize
}

// Sender frames messages into a ring producer.
type Sender struct {
	p   api.Producer
	max int
}

// NewSender returns a Sender writing to p.
func NewSender(p api.Producer) *Sender {
	return &Sender{p: p, max: MaxMessageSize(p.SlotSize())}
}

// Send publishes data as one message.
func (s *Sender) Send(data []byte) error {
	if err := s.write(data); err != nil {
		return err
	}
	s.p.Flush()
	return nil
}

// SendBatch publishes msgs with a single flush. Nothing is written if one of
// them is too large.
func (s *Sender) SendBatch(msgs ...[]byte) error {
	for _, m := range msgs {
		if len(m) > s.max {
			return fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, len(m), s.max)
		}
	}
	for _, m := range msgs {
		_ = s.write(m)
	}
	s.p.Flush()
	return nil
}

func (s *Sender) write(data []byte) error {
	if len(data) > s.max {
		return fmt.Errorf("%w: %d bytes, max %d", ErrTooLarge, len(data), s.max)
	}
	buf := s.p.Next()
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[frameHeaderSize:], data)
	return nil
}

// Receiver reads framed messages from a ring consumer.
type Receiver struct {
	c    api.Consumer
	wait ring.WaitStrategy
	left int64
	held bool
}

// NewReceiver returns a Receiver reading from c. wait paces Receive while the
// ring is empty; nil means ring.Yield.
func NewReceiver(c api.Consumer, wait ring.WaitStrategy) *Receiver {
	if wait == nil {
		wait = ring.Yield{}
	}
	return &Receiver{c: c, wait: wait}
}

// Receive returns the next message, waiting until one arrives or ctx is done.
// The returned slice points into the ring and is valid until the next call.
// Once it returned ring.ErrWrapped or ring.ErrTornRead, Receive keeps failing
// until Resync.
func (r *Receiver) Receive(ctx context.Context) ([]byte, error) {
	for r.left == 0 {
		if r.held {
			r.c.DonePolling()
			r.held = false
		}
		n := r.c.AvailableToPoll()
		if n == ring.WrappedCount {
			return nil, ring.ErrWrapped
		}
		if n > 0 {
			r.wait.Reset()
			r.left, r.held = n, true
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.wait.Wait()
	}
	buf, err := r.c.Poll()
	if err != nil {
		return nil, err
	}
	r.left--
	n := binary.LittleEndian.Uint32(buf)
	if int(n) > len(buf)-frameHeaderSize {
		return nil, fmt.Errorf("%w: %d", ErrCorruptFrame, n)
	}
	return buf[frameHeaderSize : frameHeaderSize+int(n)], nil
}

// Resync skips every message not received yet and returns how many.
func (r *Receiver) Resync() uint64 {
	r.left, r.held = 0, false
	return r.c.Resync()
}

// Close releases the messages received so far.
func (r *Receiver) Close() {
	if r.held {
		r.c.DonePolling()
		r.held = false
	}
}
