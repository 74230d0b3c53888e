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
// Package relay drains a ring consumer on one goroutine and hands copies of
// the records to any number of in-process workers through a bounded queue.
// The shared ring keeps a single consumer.
package relay

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/valyala/bytebufferpool"

	"github.com/srediag/shm-ring/api"
	"github.com/srediag/shm-ring/internal/logger"
	"github.com/srediag/shm-ring/pkg/ring"
)

var internalLogger = logger.New("relay", nil)

// ErrDisposed is returned by Get once the relay was disposed.
var ErrDisposed = queue.ErrDisposed

// LossFunc is told how many records were skipped and why, either
// ring.ErrWrapped or ring.ErrTornRead.
type LossFunc func(skipped uint64, cause error)

// Options configures a Relay.
type Options struct {
	// QueueSize is the number of records buffered for the workers, rounded up
	// to a power of two. Defaults to 1024.
	QueueSize uint64
	// Idle is how long Run sleeps when the ring is empty. Zero yields.
	Idle time.Duration
	// OnLoss is called from Run after the relay resynced a lossy consumer.
	OnLoss LossFunc
}

// Relay moves records from a ring consumer to a queue.
type Relay struct {
	src    api.Consumer
	q      *queue.RingBuffer
	pool   bytebufferpool.Pool
	idle   time.Duration
	onLoss LossFunc

	relayed atomic.Uint64
	lost    atomic.Uint64
}

// New returns a Relay reading from src. Run must be called to start it.
func New(src api.Consumer, opts Options) *Relay {
	size := opts.QueueSize
	if size == 0 {
		size = 1024
	}
	return &Relay{
		src:    src,
		q:      queue.NewRingBuffer(size),
		idle:   opts.Idle,
		onLoss: opts.OnLoss,
	}
}

// Run drains the consumer until ctx is done or the relay is disposed. When the
// queue is full Run stops polling, which makes a blocking producer wait too.
func (r *Relay) Run(ctx context.Context) error {
	slot := r.src.SlotSize()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.q.IsDisposed() {
			return nil
		}
		n := r.src.AvailableToPoll()
		if n == ring.WrappedCount {
			r.loss(ring.ErrWrapped)
			continue
		}
		if n == 0 {
			r.pause()
			continue
		}
		for i := int64(0); i < n; i++ {
			buf := r.pool.Get()
			if cap(buf.B) < slot {
				buf.B = make([]byte, slot)
			}
			buf.B = buf.B[:slot]
			k, err := r.src.PollCopy(buf.B)
			if err != nil {
				r.pool.Put(buf)
				if errors.Is(err, ring.ErrTornRead) {
					r.loss(err)
					break
				}
				return err
			}
			buf.B = buf.B[:k]
			if err := r.put(ctx, buf); err != nil {
				r.pool.Put(buf)
				if errors.Is(err, queue.ErrDisposed) {
					return nil
				}
				return err
			}
			r.relayed.Add(1)
		}
		r.src.DonePolling()
	}
}

func (r *Relay) put(ctx context.Context, buf *bytebufferpool.ByteBuffer) error {
	for {
		ok, err := r.q.Offer(buf)
		if err != nil || ok {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.pause()
	}
}

func (r *Relay) pause() {
	if r.idle > 0 {
		time.Sleep(r.idle)
		return
	}
	runtime.Gosched()
}

func (r *Relay) loss(cause error) {
	skipped := r.src.Resync()
	r.lost.Add(skipped)
	internalLogger.Warnf("relay lost %d record(s): %v", skipped, cause)
	if r.onLoss != nil {
		r.onLoss(skipped, cause)
	}
}

// Get returns the next record, waiting at most timeout; zero waits until a
// record arrives or the relay is disposed. The buffer must be handed back
// with Release.
func (r *Relay) Get(timeout time.Duration) (*bytebufferpool.ByteBuffer, error) {
	item, err := r.q.Poll(timeout)
	if err != nil {
		return nil, err
	}
	return item.(*bytebufferpool.ByteBuffer), nil
}

// Release returns a buffer obtained from Get to the pool.
func (r *Relay) Release(buf *bytebufferpool.ByteBuffer) {
	r.pool.Put(buf)
}

// Len returns the number of records waiting in the queue.
func (r *Relay) Len() uint64 {
	return r.q.Len()
}

// Relayed returns the number of records queued so far.
func (r *Relay) Relayed() uint64 {
	return r.relayed.Load()
}

// Lost returns the number of records skipped by resyncs.
func (r *Relay) Lost() uint64 {
	return r.lost.Load()
}

// Dispose stops Run and wakes up every Get.
func (r *Relay) Dispose() {
	r.q.Dispose()
}
