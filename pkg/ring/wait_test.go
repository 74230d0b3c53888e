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
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestSimpleWaitStrategies(t *testing.T) {
	for _, w := range []WaitStrategy{BusySpin{}, Yield{}, Sleep{D: time.Microsecond}, Sleep{}} {
		assert.NotPanics(t, func() {
			w.Wait()
			w.Wait()
			w.Reset()
		})
	}
}

func TestSpinYieldParkAdapts(t *testing.T) {
	w := NewSpinYieldPark()
	w.SpinLimit, w.MinSpin, w.MaxSpin = 10, 5, 20
	w.IncStep, w.DecStep, w.YieldLimit = 4, 3, 2
	w.Park = time.Microsecond

	// satisfied while spinning: budget grows
	w.Wait()
	w.Reset()
	assert.Equal(t, 14, w.SpinLimit)

	// had to park: budget shrinks, not below MinSpin
	for i := 0; i < 20; i++ {
		w.Wait()
	}
	w.Reset()
	assert.Equal(t, 11, w.SpinLimit)
	for j := 0; j < 5; j++ {
		for i := 0; i < 30; i++ {
			w.Wait()
		}
		w.Reset()
	}
	assert.Equal(t, 5, w.SpinLimit)

	// Reset without Wait leaves it alone
	w.Reset()
	assert.Equal(t, 5, w.SpinLimit)
}

func TestBackoffWaitNeverStops(t *testing.T) {
	w := NewBackoff(backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Microsecond), 1))
	start := time.Now()
	for i := 0; i < 5; i++ {
		w.Wait()
	}
	w.Reset()
	assert.Less(t, time.Since(start), time.Second)

	stop := NewBackoff(&backoff.StopBackOff{})
	assert.NotPanics(t, stop.Wait)

	def := NewBackoff(nil)
	def.Wait()
	def.Reset()
}
