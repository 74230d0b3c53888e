// Package shm provides the memory regions the ring buffer is laid out on.
//
// A Memory is a fixed-size block of bytes with plain and volatile (atomic,
// acquire/release ordered) accessors for 32- and 64-bit integers at byte
// offsets. Two implementations exist:
//
//   - HeapMemory, a process-local block for rings shared between goroutines.
//   - SharedMemory, a file-backed mmap region that can be shared between
//     processes. Its first bytes record the region size, so a process that
//     attaches to an existing file does not need to be told how big it is.
//
// Example usage:
//
//	mem, err := shm.Open(ctx, shm.OpenOptions{
//	  Path: "/dev/shm/orders.ring",
//	  Size: 1 << 20,
//	})
//	// ...
//	defer mem.Close(false)
//
// PaddedCounter places a 64-bit counter alone on its cache line inside a
// Memory, so that two counters written by different parties never share a
// line.
package shm
