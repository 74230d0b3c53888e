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
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shm-ring/api"
)

type fixedStats api.Stats

func (f fixedStats) Stats() api.Stats { return api.Stats(f) }

func gather(t *testing.T, reg *prometheus.Registry) map[string][]*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string][]*dto.Metric, len(families))
	for _, f := range families {
		out[f.GetName()] = f.GetMetric()
	}
	return out
}

func ringLabel(m *dto.Metric) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == "ring" {
			return l.GetValue()
		}
	}
	return ""
}

func TestCollectorReportsStats(t *testing.T) {
	c := NewCollector("")
	c.Add("orders", fixedStats{Capacity: 8, Published: 10, Polled: 7, Lag: 3, Wraps: 1, TornReads: 2, Waits: 4, Wrapped: true})
	c.Add("quotes", fixedStats{Capacity: 16})
	assert.Equal(t, 2, c.Len())

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	got := gather(t, reg)

	published := got["shmring_published_total"]
	require.Len(t, published, 2)
	for _, m := range published {
		switch ringLabel(m) {
		case "orders":
			assert.Equal(t, 10.0, m.GetCounter().GetValue())
		case "quotes":
			assert.Equal(t, 0.0, m.GetCounter().GetValue())
		default:
			t.Fatalf("unexpected ring label %q", ringLabel(m))
		}
	}

	for _, m := range got["shmring_consumer_wrapped"] {
		if ringLabel(m) == "orders" {
			assert.Equal(t, 1.0, m.GetGauge().GetValue())
		}
	}
	for _, name := range []string{"shmring_polled_total", "shmring_lag", "shmring_wraps_total",
		"shmring_torn_reads_total", "shmring_producer_waits_total", "shmring_capacity"} {
		assert.Len(t, got[name], 2, name)
	}

	c.Remove("quotes")
	got = gather(t, reg)
	assert.Len(t, got["shmring_lag"], 1)
	assert.Equal(t, 3.0, got["shmring_lag"][0].GetGauge().GetValue())
}

func TestCollectorNamespace(t *testing.T) {
	c := NewCollector("bench")
	c.Add("a", fixedStats{})
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	got := gather(t, reg)
	assert.Contains(t, got, "bench_capacity")
}
