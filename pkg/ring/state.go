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

import "fmt"

// ConsumerState tracks where a consumer is in its poll cycle.
type ConsumerState int32

const (
	// Idle: no batch in progress.
	Idle ConsumerState = iota
	// Polling: AvailableToPoll reported a batch that is being read.
	Polling
	// Draining: the whole batch was read, DonePolling has not been called.
	Draining
	// Wrapped: records were lost. Sticky until Resync.
	Wrapped
)

func (s ConsumerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Draining:
		return "draining"
	case Wrapped:
		return "wrapped"
	}
	return fmt.Sprintf("ConsumerState(%d)", int32(s))
}
