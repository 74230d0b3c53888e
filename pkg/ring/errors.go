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

import "errors"

// WrappedCount is returned by Consumer.AvailableToPoll when the producer published
// more than a full ring since the consumer's position: records were lost.
const WrappedCount int64 = -1

var (
	// ErrTornRead reports a slot whose seal does not match its contents: the
	// producer overwrote it while it was being read.
	ErrTornRead = errors.New("ring: torn read, slot overwritten by producer")
	// ErrWrapped is returned by Poll once the consumer is in the Wrapped state.
	ErrWrapped = errors.New("ring: consumer fell behind, ring wrapped")
	// ErrNothingToPoll is returned by Poll past the batch reported by the last
	// AvailableToPoll call.
	ErrNothingToPoll = errors.New("ring: nothing to poll")
	// ErrLayoutMismatch is returned when attaching with a slot size different
	// from the one recorded in the ring header.
	ErrLayoutMismatch = errors.New("ring: layout mismatch")
	// ErrInvalidHeader is returned when the memory does not hold a usable ring.
	ErrInvalidHeader = errors.New("ring: invalid ring header")
	// ErrInvalidConfig is returned by VerifyConfig.
	ErrInvalidConfig = errors.New("ring: invalid config")
	// ErrClosed is returned by operations on a closed producer or consumer.
	ErrClosed = errors.New("ring: closed")
)
