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
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitStrategy decides what a blocked producer does between two attempts to
// claim a slot. Wait is called once per failed attempt and Reset once the
// attempt succeeds. Strategies are owned by a single producer and need not be
// safe for concurrent use.
type WaitStrategy interface {
	Wait()
	Reset()
}

// BusySpin retries immediately. Lowest latency, burns a core.
type BusySpin struct{}

func (BusySpin) Wait()  {}
func (BusySpin) Reset() {}

// Yield gives up the processor between attempts.
type Yield struct{}

func (Yield) Wait()  { runtime.Gosched() }
func (Yield) Reset() {}

// Sleep parks the goroutine for a fixed duration between attempts.
type Sleep struct {
	D time.Duration
}

func (s Sleep) Wait() {
	d := s.D
	if d <= 0 {
		d = time.Microsecond
	}
	time.Sleep(d)
}

func (Sleep) Reset() {}

// SpinYieldPark spins for a while, then yields, then sleeps. The spin budget
// adapts: a wait that ends while still spinning grows it, one that had to park
// shrinks it.
type SpinYieldPark struct {
	SpinLimit  int
	MinSpin    int
	MaxSpin    int
	IncStep    int
	DecStep    int
	YieldLimit int
	Park       time.Duration

	calls int
}

// NewSpinYieldPark returns a SpinYieldPark with defaults tuned for
// sub-microsecond handoffs.
func NewSpinYieldPark() *SpinYieldPark {
	return &SpinYieldPark{
		SpinLimit:  2000,
		MinSpin:    100,
		MaxSpin:    20000,
		IncStep:    200,
		DecStep:    100,
		YieldLimit: 100,
		Park:       50 * time.Microsecond,
	}
}

func (w *SpinYieldPark) Wait() {
	w.calls++
	switch {
	case w.calls <= w.SpinLimit:
		// yield now and then so a consumer sharing the P can run
		if w.calls&0x3f == 0 {
			runtime.Gosched()
		}
	case w.calls <= w.SpinLimit+w.YieldLimit:
		runtime.Gosched()
	default:
		time.Sleep(w.Park)
	}
}

func (w *SpinYieldPark) Reset() {
	if w.calls == 0 {
		return
	}
	if w.calls <= w.SpinLimit {
		w.SpinLimit = min(w.SpinLimit+w.IncStep, w.MaxSpin)
	} else {
		w.SpinLimit = max(w.SpinLimit-w.DecStep, w.MinSpin)
	}
	w.calls = 0
}

// Backoff sleeps for the intervals produced by a backoff.BackOff. When the
// policy gives up (backoff.Stop) it is reset and the wait goes on: the ring
// never times out on its own, use Producer.NextContext to bound a wait.
type Backoff struct {
	b backoff.BackOff
}

// NewBackoff wraps b. A nil b uses an exponential backoff capped at 10ms.
func NewBackoff(b backoff.BackOff) *Backoff {
	if b == nil {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = time.Microsecond
		eb.MaxInterval = 10 * time.Millisecond
		eb.MaxElapsedTime = 0
		b = eb
	}
	b.Reset()
	return &Backoff{b: b}
}

func (w *Backoff) Wait() {
	d := w.b.NextBackOff()
	if d == backoff.Stop {
		w.b.Reset()
		d = w.b.NextBackOff()
		if d == backoff.Stop {
			runtime.Gosched()
			return
		}
	}
	time.Sleep(d)
}

func (w *Backoff) Reset() { w.b.Reset() }
