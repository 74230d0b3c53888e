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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shm-ring/pkg/shm"
)

// Policy selects what the producer does when the ring is full.
type Policy int

const (
	// Blocking producers wait for the consumer, nothing is ever lost.
	Blocking Policy = iota
	// NonBlocking producers never wait and overwrite unread slots.
	NonBlocking
)

func (p Policy) String() string {
	switch p {
	case Blocking:
		return "blocking"
	case NonBlocking:
		return "nonblocking"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "blocking":
		return Blocking, nil
	case "nonblocking", "non-blocking":
		return NonBlocking, nil
	}
	return 0, fmt.Errorf("%w: unknown policy %q", ErrInvalidConfig, s)
}

// Config is used to open a producer or a consumer.
type Config struct {
	// Path of the file backing the ring. Ignored when Memory is set.
	Path string
	// Memory holds the ring when set, for instance a shm.HeapMemory shared by
	// two goroutines. The ring does not close memory it did not open.
	Memory shm.Memory
	// Capacity is the number of slots. The side that attaches to an existing
	// ring uses the capacity recorded in it.
	Capacity int64
	// SlotSize is the fixed record size in bytes. Both sides must agree.
	SlotSize int
	// Policy of the ring; the producer's policy is the one that matters.
	Policy Policy
	// Wait is used by a blocking producer while the ring is full. Nil means
	// BusySpin.
	Wait WaitStrategy
	// AttachTimeout bounds the wait for the other side to finish creating the
	// backing file.
	AttachTimeout time.Duration
	// Name labels the ring in metrics and logs. Defaults to Path.
	Name string
	// Meter and Tracer are optional OpenTelemetry providers.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// DefaultConfig return the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Capacity:      DefaultCapacity,
		SlotSize:      64,
		Policy:        Blocking,
		Wait:          BusySpin{},
		AttachTimeout: shm.DefaultAttachTimeout,
	}
}

// VerifyConfig checks that config is usable.
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if config.Memory == nil && config.Path == "" {
		return fmt.Errorf("%w: either Path or Memory is required", ErrInvalidConfig)
	}
	if config.SlotSize <= 0 {
		return fmt.Errorf("%w: SlotSize:%d must be positive", ErrInvalidConfig, config.SlotSize)
	}
	if config.Capacity < 1 {
		return fmt.Errorf("%w: Capacity:%d must be at least 1", ErrInvalidConfig, config.Capacity)
	}
	if config.Policy != Blocking && config.Policy != NonBlocking {
		return fmt.Errorf("%w: unknown %s", ErrInvalidConfig, config.Policy)
	}
	if config.AttachTimeout < 0 {
		return fmt.Errorf("%w: AttachTimeout:%s must not be negative", ErrInvalidConfig, config.AttachTimeout)
	}
	return nil
}

func (c *Config) name() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Path != "" {
		return c.Path
	}
	return "heap"
}
