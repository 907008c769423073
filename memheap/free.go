package memheap

import (
	"fmt"
	"unsafe"
)

// Free releases a payload pointer previously returned by Alloc or
// Realloc on any heap of this process; the item header identifies the
// owning heap. Freeing nil is a no-op. The freed item is merged with
// whichever physical neighbors are free, so no two adjacent items are
// ever both free.
//
// Panics if the header's magic has been overwritten, if the item is
// already free (double free), or if the following header was clobbered
// by a write past the payload end. Passing a pointer that was never
// returned by this allocator is undefined; the magic check catches most
// such mistakes but not all.
func Free(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}

	it := headerOf(ptr)
	if it.magic != magicUsed {
		if it.magic == magicFree {
			panic("memheap: double free")
		}
		panic("memheap: corrupted block header (bad magic)")
	}
	h := it.pool
	if h == nil || h.lock == nil {
		panic("memheap: block does not belong to a live heap")
	}

	if err := h.lock.Acquire(); err != nil {
		return fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	h.stats.freeCalls++

	// A clobbered next header means the caller wrote past the payload.
	// Checked under the lock: the neighbor's state bit may legitimately
	// flip concurrently, its magic pattern may not.
	it.next.checkMagic()

	if logHeap {
		debugTracef("free %q: 0x%x (%d bytes)", h.name, it.addr()+HeaderSize, it.payloadSize())
	}

	it.magic = magicFree
	h.availableSize += it.payloadSize()

	// Merge with the left neighbor. The absorbed header becomes payload
	// of the neighbor, which is already on the free list, so no insert
	// is needed afterwards.
	insert := true
	if !it.prev.isUsed() {
		h.stats.merges++
		h.availableSize += HeaderSize

		it.prev.next = it.next
		it.next.prev = it.prev

		it = it.prev
		insert = false
	}

	// Merge with the right neighbor, which leaves both lists.
	if !it.next.isUsed() {
		h.stats.merges++
		h.availableSize += HeaderSize

		right := it.next
		right.next.prev = it
		it.next = right.next

		unlinkFree(right)
	}

	if insert {
		h.insertFree(it)
	}

	h.lock.Release()
	return nil
}
