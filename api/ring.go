// Package api defines public API contracts for shm-ring.
package api

// Stats is a snapshot of the counters of one side of a ring.
//
// Published and Polled are the producer and consumer sequences read from the
// shared memory, so they are the same whichever side takes the snapshot.
// Wraps, TornReads and Waits are counted by the side that observed them.
type Stats struct {
	Name      string
	Capacity  int64
	SlotSize  int
	Published uint64
	Polled    uint64
	Lag       uint64
	Wraps     uint64
	TornReads uint64
	Waits     uint64
	Wrapped   bool
}

// StatsSource is anything that can report ring stats.
type StatsSource interface {
	Stats() Stats
}

// Producer writes fixed-size records into a ring.
type Producer interface {
	StatsSource
	// Next returns the next slot to fill, waiting for room if the ring blocks.
	Next() []byte
	// TryNext is Next without waiting.
	TryNext() ([]byte, bool)
	// Flush publishes every slot returned by Next since the last Flush.
	Flush()
	Pending() int
	Capacity() int64
	SlotSize() int
	Close(delete bool) error
}

// Consumer reads fixed-size records from a ring.
type Consumer interface {
	StatsSource
	// AvailableToPoll returns the number of records ready, or -1 once
	// records were lost.
	AvailableToPoll() int64
	Poll() ([]byte, error)
	PollCopy(dst []byte) (int, error)
	// DonePolling releases the records read so far.
	DonePolling()
	// Resync skips to the producer position and returns how many records
	// were skipped.
	Resync() uint64
	Capacity() int64
	SlotSize() int
	Close(delete bool) error
}
