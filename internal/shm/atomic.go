package shm

import (
	"sync/atomic"
	"unsafe"
)

// Go's sync/atomic operations are sequentially consistent, which is at least
// as strong as the acquire/release ordering the ring protocol relies on. The
// same instructions order accesses made by other processes through a shared
// mapping, since ordering is a property of the hardware, not of the runtime.

// AtomicLoadUint64 loads a uint64 from shared memory with acquire semantics.
// addr must be 8-byte aligned.
func AtomicLoadUint64(addr unsafe.Pointer) uint64 {
	return atomic.LoadUint64((*uint64)(addr))
}

// AtomicStoreUint64 stores a uint64 to shared memory with release semantics.
func AtomicStoreUint64(addr unsafe.Pointer, val uint64) {
	atomic.StoreUint64((*uint64)(addr), val)
}

// AtomicLoadUint32 loads a uint32 from shared memory with acquire semantics.
// addr must be 4-byte aligned.
func AtomicLoadUint32(addr unsafe.Pointer) uint32 {
	return atomic.LoadUint32((*uint32)(addr))
}

// AtomicStoreUint32 stores a uint32 to shared memory with release semantics.
func AtomicStoreUint32(addr unsafe.Pointer, val uint32) {
	atomic.StoreUint32((*uint32)(addr), val)
}

// AtomicCompareAndSwapUint32 atomically compares and swaps a uint32 in shared memory.
func AtomicCompareAndSwapUint32(addr unsafe.Pointer, old, new uint32) bool {
	return atomic.CompareAndSwapUint32((*uint32)(addr), old, new)
}
