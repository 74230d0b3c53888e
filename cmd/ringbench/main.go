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
// Command ringbench measures ring throughput by running independent
// producer/consumer pairs over process-local memory on a goroutine pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/srediag/shm-ring/pkg/message"
	"github.com/srediag/shm-ring/pkg/ring"
	"github.com/srediag/shm-ring/pkg/shm"
)

type result struct {
	received atomic.Int64
	lost     atomic.Int64
	torn     atomic.Int64
}

func main() {
	pairs := flag.Int("pairs", 4, "number of producer/consumer pairs")
	n := flag.Int("n", 1_000_000, "messages per pair")
	capacity := flag.Int64("capacity", ring.DefaultCapacity, "slots per ring")
	batch := flag.Int("batch", 64, "messages per flush")
	policy := flag.String("policy", "blocking", "blocking or nonblocking")
	flag.Parse()

	p, err := ring.ParsePolicy(*policy)
	if err != nil {
		log.Fatal(err)
	}
	if *batch < 1 {
		log.Fatal("batch must be at least 1")
	}

	// each pair needs both goroutines running at once
	pool, err := ants.NewPool(2**pairs, ants.WithPreAlloc(true))
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Release()

	var res result
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < *pairs; i++ {
		producer, consumer, err := newPair(i, *capacity, p)
		if err != nil {
			log.Fatal(err)
		}
		wg.Add(2)
		if err := pool.Submit(func() {
			defer wg.Done()
			defer producer.Close(false)
			produce(producer, *n, *batch)
		}); err != nil {
			log.Fatal(err)
		}
		if err := pool.Submit(func() {
			defer wg.Done()
			defer consumer.Close(false)
			consume(consumer, &res)
		}); err != nil {
			log.Fatal(err)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := int64(*pairs) * int64(*n)
	fmt.Printf("pairs:%d policy:%s capacity:%d batch:%d\n", *pairs, p, *capacity, *batch)
	fmt.Printf("sent:%d received:%d lost:%d torn:%d\n", total, res.received.Load(), res.lost.Load(), res.torn.Load())
	fmt.Printf("elapsed:%s throughput:%.0f msg/s\n", elapsed, float64(res.received.Load())/elapsed.Seconds())
}

func newPair(id int, capacity int64, policy ring.Policy) (*ring.Producer, *ring.Consumer, error) {
	l, err := ring.NewLayout(capacity, message.MaxSize)
	if err != nil {
		return nil, nil, err
	}
	config := ring.DefaultConfig()
	config.Name = fmt.Sprintf("bench-%d", id)
	config.Memory = shm.NewHeapMemory(l.Size())
	config.Capacity = capacity
	config.SlotSize = message.MaxSize
	config.Policy = policy
	config.Wait = ring.NewSpinYieldPark()

	ctx := context.Background()
	producer, err := ring.NewProducer(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	consumer, err := ring.NewConsumer(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	return producer, consumer, nil
}

func produce(p *ring.Producer, n, batch int) {
	for i := 0; i < n; i++ {
		_ = message.Message{Value: int64(i), Last: i == n-1}.Encode(p.Next())
		if (i+1)%batch == 0 {
			p.Flush()
		}
	}
	p.Flush()
}

// consume reads until the last message. A non-blocking consumer that loses
// the last message would never see it, so it also stops once the producer
// sequence stops moving after it resynced.
func consume(c *ring.Consumer, res *result) {
	var m message.Message
	idle := 0
	for {
		avail := c.AvailableToPoll()
		switch {
		case avail == ring.WrappedCount:
			res.lost.Add(int64(c.Resync()))
			idle = 0
			continue
		case avail == 0:
			idle++
			if idle > 1_000_000 && c.Policy() == ring.NonBlocking {
				return
			}
			continue
		}
		idle = 0
		for i := int64(0); i < avail; i++ {
			buf, err := c.Poll()
			if err != nil {
				res.torn.Add(1)
				res.lost.Add(int64(c.Resync()))
				break
			}
			if m.Decode(buf) == nil && m.Last {
				res.received.Add(1)
				c.DonePolling()
				return
			}
			res.received.Add(1)
		}
		c.DonePolling()
	}
}
