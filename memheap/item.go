package memheap

import "unsafe"

// Header magic. The upper 31 bits are a fixed pattern verified on every
// free and on neighbor inspection; the low bit is the item state.
const (
	heapMagic = 0x1ea01ea0
	magicMask = 0xfffffffe

	stateUsed = 0x01
	stateFree = 0x00

	magicUsed = heapMagic | stateUsed
	magicFree = heapMagic | stateFree
)

const (
	// Align is the allocation alignment: one pointer width. Every
	// returned payload pointer and every rounded size is a multiple
	// of Align.
	Align = unsafe.Sizeof(uintptr(0))

	// MinPayload is the smallest payload capacity an item may have.
	// Requests are rounded up to at least this many bytes, and no
	// split may produce a remainder smaller than it.
	MinPayload = 12

	// HeaderSize is the per-item bookkeeping overhead, alignment-padded.
	HeaderSize = (unsafe.Sizeof(item{}) + Align - 1) &^ (Align - 1)
)

// item is the per-block header, overlaid directly on the pool bytes
// immediately before each payload.
//
// prev/next link the physically adjacent items in address order (the
// block list). prevFree/nextFree are meaningful only while the item is
// free; an allocated item's owner tag aliases their storage (see tag.go).
//
// An item's payload size is never stored: it is the gap between this
// header's end and the next header's start, which is why the block list
// must stay address-sorted and why the tail sentinel exists.
type item struct {
	magic uint32
	_     uint32
	pool  *Heap
	prev  *item
	next  *item

	prevFree *item
	nextFree *item
}

func itemAt(addr uintptr) *item {
	return (*item)(unsafe.Pointer(addr)) //nolint:govet // pool bytes are kept alive by the Heap
}

// headerOf recovers the item header from a payload pointer.
func headerOf(ptr unsafe.Pointer) *item {
	return (*item)(unsafe.Add(ptr, -int(HeaderSize)))
}

func (it *item) addr() uintptr {
	return uintptr(unsafe.Pointer(it))
}

func (it *item) payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(it), HeaderSize)
}

// payloadSize computes the usable byte count from the block list.
// Must not be called on the free-list sentinel, whose block links are nil.
func (it *item) payloadSize() uintptr {
	return it.next.addr() - it.addr() - HeaderSize
}

func (it *item) isUsed() bool {
	return it.magic&stateUsed != 0
}

// checkMagic panics if the header's magic pattern has been overwritten.
func (it *item) checkMagic() {
	if it.magic&magicMask != heapMagic {
		panic("memheap: corrupted block header (bad magic)")
	}
}

// insertFree links it at the head of the free list, immediately after
// the sentinel.
func (h *Heap) insertFree(it *item) {
	it.nextFree = h.freeList.nextFree
	it.prevFree = h.freeList
	h.freeList.nextFree.prevFree = it
	h.freeList.nextFree = it
}

// unlinkFree removes it from the free list and nulls its links.
func unlinkFree(it *item) {
	it.nextFree.prevFree = it.prevFree
	it.prevFree.nextFree = it.nextFree
	it.nextFree = nil
	it.prevFree = nil
}

func alignUp(n, a uintptr) uintptr {
	return (n + a - 1) &^ (a - 1)
}

func alignDown(n, a uintptr) uintptr {
	return n &^ (a - 1)
}
