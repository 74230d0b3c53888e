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
// Command ringdemo runs one side of a ring shared through a file: start a
// consumer and a producer with the same -file and the consumer prints the
// values the producer sent.
//
//	ringdemo -mode consumer &
//	ringdemo -mode producer
//	0123456789
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/srediag/shm-ring/pkg/message"
	"github.com/srediag/shm-ring/pkg/ring"
)

func defaultFile() string {
	if runtime.GOOS == "linux" {
		return "/dev/shm/shmring-demo.ring"
	}
	return filepath.Join(os.TempDir(), "shmring-demo.ring")
}

func waitStrategy(name string) (ring.WaitStrategy, error) {
	switch name {
	case "busy":
		return ring.BusySpin{}, nil
	case "yield":
		return ring.Yield{}, nil
	case "sleep":
		return ring.Sleep{D: 10 * time.Microsecond}, nil
	case "adaptive":
		return ring.NewSpinYieldPark(), nil
	case "backoff":
		return ring.NewBackoff(nil), nil
	}
	return nil, fmt.Errorf("unknown wait strategy %q", name)
}

func main() {
	mode := flag.String("mode", "producer", "producer or consumer")
	policy := flag.String("policy", "blocking", "blocking or nonblocking")
	file := flag.String("file", defaultFile(), "file backing the ring")
	n := flag.Int("n", 10, "number of messages to send")
	capacity := flag.Int64("capacity", ring.DefaultCapacity, "number of slots")
	wait := flag.String("wait", "busy", "producer wait strategy: busy, yield, sleep, adaptive or backoff")
	flag.Parse()

	config := ring.DefaultConfig()
	config.Path = *file
	config.Capacity = *capacity
	config.SlotSize = message.MaxSize
	var err error
	if config.Policy, err = ring.ParsePolicy(*policy); err != nil {
		log.Fatal(err)
	}
	if config.Wait, err = waitStrategy(*wait); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "producer":
		err = produce(ctx, config, *n)
	case "consumer":
		err = consume(ctx, config)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func produce(ctx context.Context, config *ring.Config, n int) error {
	p, err := ring.NewProducer(ctx, config)
	if err != nil {
		return err
	}
	// the consumer deletes the file
	defer p.Close(false)

	for i := 0; i < n; i++ {
		buf, err := p.NextContext(ctx)
		if err != nil {
			return err
		}
		if err := (message.Message{Value: int64(i), Last: i == n-1}).Encode(buf); err != nil {
			return err
		}
		p.Flush()
	}
	return nil
}

func consume(ctx context.Context, config *ring.Config) error {
	c, err := ring.NewConsumer(ctx, config)
	if err != nil {
		return err
	}
	defer c.Close(true)
	defer fmt.Println()

	var m message.Message
	for ctx.Err() == nil {
		avail := c.AvailableToPoll()
		if avail == 0 {
			continue
		}
		if avail == ring.WrappedCount {
			return errors.New("the consumer fell behind, ring wrapped")
		}
		for i := int64(0); i < avail; i++ {
			buf, err := c.Poll()
			if errors.Is(err, ring.ErrTornRead) {
				return errors.New("the consumer tripped over the producer, seal check failed")
			}
			if err != nil {
				return err
			}
			if err := m.Decode(buf); err != nil {
				return err
			}
			fmt.Print(m.Value)
			if m.Last {
				c.DonePolling()
				return nil
			}
		}
		c.DonePolling()
	}
	return ctx.Err()
}
