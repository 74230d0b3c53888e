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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// registerTelemetry exposes the ring counters as OpenTelemetry observable
// instruments. The values are read from the ring on collection, nothing is
// recorded on the hot path.
func registerTelemetry(meter metric.Meter, r *ring, role string) (metric.Registration, error) {
	published, err := meter.Int64ObservableCounter("shmring.producer.published",
		metric.WithDescription("Records published by the producer."))
	if err != nil {
		return nil, err
	}
	polled, err := meter.Int64ObservableCounter("shmring.consumer.polled",
		metric.WithDescription("Records handed back by the consumer."))
	if err != nil {
		return nil, err
	}
	wraps, err := meter.Int64ObservableCounter("shmring.consumer.wrapped",
		metric.WithDescription("Times the consumer fell more than a ring behind."))
	if err != nil {
		return nil, err
	}
	torn, err := meter.Int64ObservableCounter("shmring.consumer.torn_reads",
		metric.WithDescription("Slots overwritten while being read."))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("shmring.producer.waits",
		metric.WithDescription("Times a blocking producer found the ring full."))
	if err != nil {
		return nil, err
	}
	lag, err := meter.Int64ObservableGauge("shmring.lag",
		metric.WithDescription("Published records not yet handed back by the consumer."))
	if err != nil {
		return nil, err
	}

	attrs := metric.WithAttributes(
		attribute.String("ring", r.name),
		attribute.String("role", role),
	)
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := r.stats()
		o.ObserveInt64(published, int64(s.Published), attrs)
		o.ObserveInt64(polled, int64(s.Polled), attrs)
		o.ObserveInt64(wraps, int64(s.Wraps), attrs)
		o.ObserveInt64(torn, int64(s.TornReads), attrs)
		o.ObserveInt64(waits, int64(s.Waits), attrs)
		o.ObserveInt64(lag, int64(s.Lag), attrs)
		return nil
	}, published, polled, wraps, torn, waits, lag)
}
