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
// Package metrics exports ring stats to Prometheus.
package metrics

import (
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srediag/shm-ring/api"
)

// Collector is a prometheus.Collector reporting the stats of a set of named
// rings. Stats are read on scrape, the rings do no extra work.
type Collector struct {
	sources cmap.ConcurrentMap[string, api.StatsSource]

	published *prometheus.Desc
	polled    *prometheus.Desc
	lag       *prometheus.Desc
	wraps     *prometheus.Desc
	tornReads *prometheus.Desc
	waits     *prometheus.Desc
	wrapped   *prometheus.Desc
	capacity  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns an empty Collector whose metric names start with
// namespace, "shmring" when empty.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "shmring"
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{"ring"}, nil)
	}
	return &Collector{
		sources:   cmap.New[api.StatsSource](),
		published: desc("published_total", "Records published by the producer."),
		polled:    desc("polled_total", "Records handed back by the consumer."),
		lag:       desc("lag", "Published records not handed back yet."),
		wraps:     desc("wraps_total", "Times the consumer fell more than a ring behind."),
		tornReads: desc("torn_reads_total", "Slots overwritten while being read."),
		waits:     desc("producer_waits_total", "Times a blocking producer found the ring full."),
		wrapped:   desc("consumer_wrapped", "1 while the consumer is in the wrapped state."),
		capacity:  desc("capacity", "Number of slots of the ring."),
	}
}

// Add reports src under name, replacing any source with the same name.
func (c *Collector) Add(name string, src api.StatsSource) {
	c.sources.Set(name, src)
}

// Remove stops reporting name.
func (c *Collector) Remove(name string) {
	c.sources.Remove(name)
}

// Len returns the number of sources.
func (c *Collector) Len() int {
	return c.sources.Count()
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.published
	ch <- c.polled
	ch <- c.lag
	ch <- c.wraps
	ch <- c.tornReads
	ch <- c.waits
	ch <- c.wrapped
	ch <- c.capacity
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for item := range c.sources.IterBuffered() {
		name, s := item.Key, item.Val.Stats()
		var wrapped float64
		if s.Wrapped {
			wrapped = 1
		}
		ch <- prometheus.MustNewConstMetric(c.published, prometheus.CounterValue, float64(s.Published), name)
		ch <- prometheus.MustNewConstMetric(c.polled, prometheus.CounterValue, float64(s.Polled), name)
		ch <- prometheus.MustNewConstMetric(c.lag, prometheus.GaugeValue, float64(s.Lag), name)
		ch <- prometheus.MustNewConstMetric(c.wraps, prometheus.CounterValue, float64(s.Wraps), name)
		ch <- prometheus.MustNewConstMetric(c.tornReads, prometheus.CounterValue, float64(s.TornReads), name)
		ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.Waits), name)
		ch <- prometheus.MustNewConstMetric(c.wrapped, prometheus.GaugeValue, wrapped, name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), name)
	}
}
