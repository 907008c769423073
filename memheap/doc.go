// Package memheap implements a bounded-region heap allocator: a
// general-purpose allocator that manages one caller-provided contiguous
// byte range (the pool) with all bookkeeping stored inline in that range.
//
// # Overview
//
// The pool is carved into items, each prefixed by a fixed-size header.
// Every item is linked into an address-ordered doubly-linked block list;
// free items are additionally linked into a circular free list rooted at
// a sentinel embedded in the heap descriptor. A permanent zero-payload
// used item at the end of the pool (the tail sentinel) terminates
// merging and iteration without boundary checks.
//
// Allocation is first-fit over the free list with splitting; freeing
// coalesces with both physical neighbors; reallocation grows in place
// by absorbing a free right neighbor and shrinks in place by splitting,
// falling back to allocate-copy-free when it cannot.
//
// # Key Types
//
//   - Heap: the heap descriptor for one pool
//   - Stats: a point-in-time snapshot of pool accounting and op counters
//
// # Creating a Heap
//
// A heap can be initialized over any caller-provided byte slice, or
// backed by an anonymous memory mapping:
//
//	var h memheap.Heap
//	if err := memheap.Init(&h, "fast", buf); err != nil {
//	    return err
//	}
//	defer h.Detach()
//
//	p, err := h.Alloc(128)
//	if err != nil {
//	    return err
//	}
//	copy(memheap.Bytes(p), payload)
//	memheap.Free(p)
//
// Free does not take a heap: every item header carries a back reference
// to its owning descriptor, so a payload pointer alone identifies the
// heap it came from.
//
// # Concurrency
//
// Alloc, Realloc, Free, Dump and Stats serialize through the heap's
// binary semaphore (FIFO wait order). The pointer helpers (HeapOf,
// PayloadSize, Bytes, SetTag, Tag) read or write one allocated item's
// header without taking it. Operations on distinct heaps are independent.
// Payload bytes of an allocated item belong to the caller and are never
// touched by the allocator until that item is freed.
//
// # Fatal Conditions
//
// Exhaustion and lock failure are recoverable and reported as errors.
// Corruption — a header whose magic pattern has been overwritten, a
// double free, a clobbered neighbor header — is fatal: the allocator
// panics rather than compound the damage.
//
// # Pool Lifetime
//
// Item headers store Go pointers inside the pool bytes, where the
// garbage collector does not scan them. The Heap keeps its pool slice
// referenced for as long as it is live; callers must keep the Heap
// reachable (registration at Init does this for them) and must treat
// every payload pointer as dead after Detach.
//
// # Related Packages
//
//   - github.com/ivanyangcn/rt-thread/memsys: process-wide heap façade
//     that multiplexes every registered heap behind Malloc/Free/Realloc
//   - github.com/ivanyangcn/rt-thread/internal/region: anonymous-mapping
//     pool backing used by New
package memheap
