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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaddedCounterGetSet(t *testing.T) {
	m := NewHeapMemory(2 * PaddedCounterSize)
	defer m.Close(false)

	c := NewPaddedCounter(m, 0, 0)
	assert.Equal(t, int64(CacheLineSize), c.Address())
	assert.Equal(t, uint64(0), c.Get())
	c.Set(12345)
	assert.Equal(t, uint64(12345), c.Get())
	assert.Equal(t, uint64(12345), m.GetUint64(c.Address()))
}

func TestPaddedCounterValueOffset(t *testing.T) {
	m := NewHeapMemory(PaddedCounterSize)
	defer m.Close(false)

	c := NewPaddedCounter(m, 0, 1)
	assert.False(t, c.Initialized())
	c.Set(0)
	assert.True(t, c.Initialized())
	assert.Equal(t, uint64(0), c.Get())
	assert.Equal(t, uint64(1), m.GetUint64(c.Address()))
}

func TestPaddedCountersDoNotShareCacheLines(t *testing.T) {
	m := NewHeapMemory(2 * PaddedCounterSize)
	defer m.Close(false)

	a := NewPaddedCounter(m, 0, 0)
	b := NewPaddedCounter(m, PaddedCounterSize, 0)

	lineA := a.Address() / CacheLineSize
	lineB := b.Address() / CacheLineSize
	assert.Greater(t, lineB-lineA, int64(1))
	// neighbouring lines hold no other counter value
	assert.GreaterOrEqual(t, a.Address()-0, int64(CacheLineSize))
	assert.GreaterOrEqual(t, b.Address()-(a.Address()+8), int64(CacheLineSize))

	a.Set(1)
	b.Set(2)
	assert.Equal(t, uint64(1), a.Get())
	assert.Equal(t, uint64(2), b.Get())
}

func TestPaddedCounterMisuse(t *testing.T) {
	m := NewHeapMemory(PaddedCounterSize)
	defer m.Close(false)

	assert.Panics(t, func() { NewPaddedCounter(m, 8, 0) })
	assert.Panics(t, func() { NewPaddedCounter(m, CacheLineSize, 0) })
}
