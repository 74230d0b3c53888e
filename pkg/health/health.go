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
// Package health provides liveness and readiness checks over a ring.
package health

import (
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"

	"github.com/srediag/shm-ring/api"
	internalshm "github.com/srediag/shm-ring/internal/shm"
)

// ConsumerNotWrapped fails while the consumer has lost records and was not
// resynced.
func ConsumerNotWrapped(src api.StatsSource) healthcheck.Check {
	return func() error {
		if s := src.Stats(); s.Wrapped {
			return fmt.Errorf("ring %s: consumer wrapped", s.Name)
		}
		return nil
	}
}

// LagBelow fails when the consumer is threshold or more records behind.
func LagBelow(src api.StatsSource, threshold uint64) healthcheck.Check {
	return func() error {
		if s := src.Stats(); s.Lag >= threshold {
			return fmt.Errorf("ring %s: lag %d, threshold %d", s.Name, s.Lag, threshold)
		}
		return nil
	}
}

// RegionExists fails when the file backing a ring is gone.
func RegionExists(path string) healthcheck.Check {
	return func() error {
		if !internalshm.PathExists(path) {
			return fmt.Errorf("region %s does not exist", path)
		}
		return nil
	}
}

// NewHandler returns a healthcheck.Handler serving /live and /ready for the
// ring at path. Liveness checks the backing file; readiness checks the
// consumer state and, when maxLag is non-zero, its lag.
func NewHandler(path string, src api.StatsSource, maxLag uint64) healthcheck.Handler {
	h := healthcheck.NewHandler()
	if path != "" {
		h.AddLivenessCheck("region", healthcheck.Timeout(RegionExists(path), time.Second))
	}
	if src != nil {
		h.AddReadinessCheck("consumer-not-wrapped", ConsumerNotWrapped(src))
		if maxLag > 0 {
			h.AddReadinessCheck("lag", LagBelow(src, maxLag))
		}
	}
	return h
}
