package memheap

import (
	"fmt"
	"io"
)

// Dump writes a block-by-block listing of the pool to w: payload
// address, payload size, and either the owner tag or a <F> free marker.
// The walk holds the heap lock, so the listing is a consistent snapshot.
func (h *Heap) Dump(w io.Writer) error {
	if h == nil || h.lock == nil {
		panic("memheap: Dump of an uninitialized heap")
	}
	if err := h.lock.Acquire(); err != nil {
		return fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	defer h.lock.Release()

	fmt.Fprintf(w, "[%s] [0x%08x - 0x%08x]\n", h.name, h.start, h.start+h.poolSize)
	fmt.Fprintln(w, "------------------------------")

	// The tail sentinel is the only item whose next wraps to the head;
	// it is bookkeeping, not a block, and is left out of the listing.
	for it := h.blockList; it.next != h.blockList; it = it.next {
		if it.magic&magicMask != heapMagic {
			fmt.Fprintf(w, "0x%08x: corrupted header (magic 0x%08x)\n", it.addr(), it.magic)
			break
		}
		if it.isUsed() {
			fmt.Fprintf(w, "0x%08x: %-8d %s\n", it.addr()+HeaderSize, it.payloadSize(), itemTag(it))
		} else {
			fmt.Fprintf(w, "0x%08x: %-8d <F>\n", it.addr()+HeaderSize, it.payloadSize())
		}
	}
	return nil
}

// DumpAll writes a Dump of every registered heap to w, preceded by the
// header overhead so listed payload sizes can be related to pool sizes.
func DumpAll(w io.Writer) error {
	fmt.Fprintf(w, "memheap header size: %d\n", HeaderSize)
	for _, h := range Heaps() {
		if err := h.Dump(w); err != nil {
			return err
		}
	}
	return nil
}
