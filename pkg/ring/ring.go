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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/shm-ring/internal/logger"
	internalshm "github.com/srediag/shm-ring/internal/shm"
	"github.com/srediag/shm-ring/pkg/shm"
)

var internalLogger = logger.New("ring", nil)

var errInitializing = errors.New("ring: header being initialized")

// ring is the state shared by the producer and the consumer side: the memory,
// the layout read from (or written to) the header and the two counters.
type ring struct {
	mem     shm.Memory
	ownsMem bool
	layout  Layout
	name    string
	created bool

	producerSeq *shm.PaddedCounter
	consumerSeq *shm.PaddedCounter

	wraps     atomic.Uint64
	tornReads atomic.Uint64
	waits     atomic.Uint64

	// mu guards the memory against Close while stats are being read.
	mu           sync.RWMutex
	closed       bool
	registration metric.Registration
}

func openRing(ctx context.Context, config *Config, role string) (r *ring, err error) {
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	requested, err := NewLayout(config.Capacity, config.SlotSize)
	if err != nil {
		return nil, err
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer("")
	}
	ctx, span := tracer.Start(ctx, "shmring.open", trace.WithAttributes(
		attribute.String("ring", config.name()),
		attribute.String("role", role),
		attribute.String("policy", config.Policy.String()),
		attribute.Int64("capacity", requested.Capacity()),
		attribute.Int("slot_size", requested.SlotSize()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	r = &ring{name: config.name()}
	if config.Memory != nil {
		r.mem = config.Memory
	} else {
		m, err := shm.Open(ctx, shm.OpenOptions{
			Path:          config.Path,
			Size:          requested.Size(),
			AttachTimeout: config.AttachTimeout,
		})
		if err != nil {
			return nil, err
		}
		r.mem = m
		r.ownsMem = true
	}

	if err := r.init(ctx, requested, config.AttachTimeout); err != nil {
		if r.ownsMem {
			_ = r.mem.Close(false)
		}
		return nil, err
	}
	r.producerSeq = shm.NewPaddedCounter(r.mem, producerCounterOffset, 0)
	r.consumerSeq = shm.NewPaddedCounter(r.mem, consumerCounterOffset, 0)
	span.SetAttributes(
		attribute.Bool("created", r.created),
		attribute.Int64("producer_sequence", int64(r.producerSeq.Get())),
		attribute.Int64("consumer_sequence", int64(r.consumerSeq.Get())),
	)

	if config.Meter != nil {
		reg, err := registerTelemetry(config.Meter, r, role)
		if err != nil {
			r.close(false)
			return nil, fmt.Errorf("register ring metrics: %w", err)
		}
		r.registration = reg
	}
	return r, nil
}

// init writes the ring header if the memory is blank, or validates it and
// adopts the recorded layout otherwise. When another party is writing the
// header, init waits for it for at most timeout.
func (r *ring) init(ctx context.Context, requested Layout, timeout time.Duration) error {
	if r.mem.Size() < slotsOffset {
		return fmt.Errorf("%w: memory of %d bytes cannot hold a ring header", ErrInvalidHeader, r.mem.Size())
	}
	if timeout <= 0 {
		timeout = shm.DefaultAttachTimeout
	}
	op := func() error {
		err := r.tryInit(requested)
		if err != nil && !errors.Is(err, errInitializing) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = timeout
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

func (r *ring) tryInit(requested Layout) error {
	magicAddr := r.mem.Pointer(headerMagicOffset)
	switch magic := r.mem.GetUint32Volatile(headerMagicOffset); magic {
	case 0:
		if requested.Size() > r.mem.Size() {
			return fmt.Errorf("%w: ring of %d bytes does not fit in %d bytes", ErrInvalidHeader, requested.Size(), r.mem.Size())
		}
		if !internalshm.AtomicCompareAndSwapUint32(magicAddr, 0, ringInitializing) {
			return errInitializing
		}
		r.writeHeader(requested)
		r.layout = requested
		r.created = true
		internalLogger.Infof("ring %s initialized, capacity %d, slot size %d", r.name, requested.Capacity(), requested.SlotSize())
		return nil
	case ringInitializing:
		return errInitializing
	case RingMagic:
		return r.adoptHeader(requested)
	default:
		return fmt.Errorf("%w: bad magic %#x", ErrInvalidHeader, magic)
	}
}

func (r *ring) writeHeader(l Layout) {
	m := r.mem
	m.PutUint32(headerVersionOffset, LayoutVersion)
	m.PutUint64(headerCapacityOffset, uint64(l.Capacity()))
	m.PutUint64(headerSlotSizeOffset, uint64(l.SlotSize()))
	m.PutUint64(headerStrideOffset, uint64(l.Stride()))
	m.PutUint64(ProducerSequenceOffset(), 0)
	m.PutUint64(ConsumerSequenceOffset(), 0)
	for i := int64(0); i < l.Capacity(); i++ {
		m.PutUint64(l.SlotOffset(uint64(i))+sealSeqOffset, 0)
	}
	m.PutUint32Volatile(headerMagicOffset, RingMagic)
}

func (r *ring) adoptHeader(requested Layout) error {
	m := r.mem
	if v := m.GetUint32(headerVersionOffset); v != LayoutVersion {
		return fmt.Errorf("%w: layout version %d, expected %d", ErrInvalidHeader, v, LayoutVersion)
	}
	slotSize := int64(m.GetUint64(headerSlotSizeOffset))
	if slotSize != int64(requested.SlotSize()) {
		return fmt.Errorf("%w: ring slot size %d, requested %d", ErrLayoutMismatch, slotSize, requested.SlotSize())
	}
	capacity := int64(m.GetUint64(headerCapacityOffset))
	l, err := NewLayout(capacity, int(slotSize))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if stride := int64(m.GetUint64(headerStrideOffset)); stride != l.Stride() {
		return fmt.Errorf("%w: slot stride %d, expected %d", ErrInvalidHeader, stride, l.Stride())
	}
	if l.Size() > m.Size() {
		return fmt.Errorf("%w: ring of %d bytes does not fit in %d bytes", ErrInvalidHeader, l.Size(), m.Size())
	}
	if capacity != requested.Capacity() {
		internalLogger.Warnf("ring %s has capacity %d, requested %d is ignored", r.name, capacity, requested.Capacity())
	}
	r.layout = l
	return nil
}

func (r *ring) stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{
		Name:      r.name,
		Capacity:  r.layout.Capacity(),
		SlotSize:  r.layout.SlotSize(),
		Wraps:     r.wraps.Load(),
		TornReads: r.tornReads.Load(),
		Waits:     r.waits.Load(),
	}
	if r.closed {
		return s
	}
	s.Published = r.producerSeq.Get()
	s.Polled = r.consumerSeq.Get()
	if s.Published > s.Polled {
		s.Lag = s.Published - s.Polled
	}
	return s
}

func (r *ring) close(delete bool) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.registration != nil {
		if err := r.registration.Unregister(); err != nil {
			internalLogger.Warnf("ring %s unregister metrics: %v", r.name, err)
		}
	}
	if !r.ownsMem {
		return nil
	}
	return r.mem.Close(delete)
}

func (r *ring) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}
