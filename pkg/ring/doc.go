// Package ring implements a single-producer/single-consumer ring of
// fixed-size slots laid out in a shm.Memory, usually a file-backed region
// shared by two processes.
//
// The producer claims slots with Next, writes records in place and publishes
// the whole batch with a single Flush. The consumer asks AvailableToPoll how
// many slots were published since its last position, reads them in place with
// Poll, and reports progress with DonePolling. The two sides coordinate only
// through two padded counters, the producer sequence and the consumer
// sequence, using release stores and acquire loads. There are no locks and no
// syscalls after the ring is opened.
//
// Two policies share one layout:
//
//   - Blocking: Next waits (using a WaitStrategy) while the ring is full, so no
//     record is ever lost.
//   - NonBlocking: Next never waits and may overwrite records the consumer has
//     not read. The consumer detects it: AvailableToPoll returns WrappedCount
//     when it fell more than a ring behind, and Poll returns ErrTornRead when a
//     slot was overwritten while it was being read. Recovery (Resync) is up to
//     the caller.
//
// A minimal blocking pair:
//
//	p, _ := ring.NewBlockingProducer(ctx, "/dev/shm/demo.ring", 1024, message.MaxSize)
//	buf := p.Next()
//	message.Message{Value: 1}.Encode(buf)
//	p.Flush()
//
//	c, _ := ring.NewBlockingConsumer(ctx, "/dev/shm/demo.ring", 1024, message.MaxSize)
//	for {
//	  n := c.AvailableToPoll()
//	  for i := int64(0); i < n; i++ {
//	    buf, err := c.Poll()
//	    // ...
//	  }
//	  c.DonePolling()
//	}
//
// Producer and Consumer values are not safe for concurrent use; Stats may be
// read from any goroutine.
package ring
