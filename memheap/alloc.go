package memheap

import (
	"fmt"
	"unsafe"
)

// Alloc allocates at least size bytes from the heap and returns a
// pointer to the payload, aligned to Align. The request is rounded up
// to the smallest multiple of Align that is at least MinPayload; the item backing
// the pointer may be larger still when splitting the chosen free block
// was not worthwhile (see PayloadSize).
//
// Returns ErrNoMemory when no free item satisfies the rounded request.
// A request equal to the heap's available size is rejected as well: the
// guard is deliberately strict, mirroring the embedded header overhead.
func (h *Heap) Alloc(size int) (unsafe.Pointer, error) {
	if h == nil || h.lock == nil {
		panic("memheap: Alloc on an uninitialized heap")
	}
	if size < 0 {
		panic("memheap: Alloc with negative size")
	}

	n := alignUp(uintptr(size), Align)
	if n < MinPayload {
		n = alignUp(MinPayload, Align)
	}

	if err := h.lock.Acquire(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	h.stats.allocCalls++

	if n >= h.availableSize {
		h.lock.Release()
		return nil, ErrNoMemory
	}

	// First fit: take the first free item whose payload holds the
	// rounded request. The scan starts right after the sentinel, so the
	// most recently freed or split-off items are tried first.
	var fit *item
	for it := h.freeList.nextFree; it != h.freeList; it = it.nextFree {
		if it.payloadSize() >= n {
			fit = it
			break
		}
	}
	if fit == nil {
		h.lock.Release()
		return nil, ErrNoMemory
	}

	fitSize := fit.payloadSize()
	if fitSize >= n+HeaderSize+MinPayload {
		// Split: the remainder becomes a new free item directly behind
		// the allocated head.
		h.stats.splits++
		rem := itemAt(fit.addr() + HeaderSize + n)
		rem.magic = magicFree
		rem.pool = h

		rem.prev = fit
		rem.next = fit.next
		fit.next.prev = rem
		fit.next = rem

		unlinkFree(fit)
		h.insertFree(rem)

		h.availableSize -= n + HeaderSize
	} else {
		// Consume the whole item; the slack stays attached as payload.
		h.availableSize -= fitSize
		unlinkFree(fit)
	}
	h.noteUsage()

	fit.magic = magicUsed

	h.lock.Release()

	if logHeap {
		debugTracef("alloc %q: %d bytes -> 0x%x", h.name, n, fit.addr()+HeaderSize)
	}
	return fit.payload(), nil
}
