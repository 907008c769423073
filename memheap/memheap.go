package memheap

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/ivanyangcn/rt-thread/internal/region"
	"github.com/ivanyangcn/rt-thread/internal/sem"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugHeap = false

// Runtime trace flag for allocation logging - controlled by MEMHEAP_LOG_ALLOC env var.
var logHeap = os.Getenv("MEMHEAP_LOG_ALLOC") != ""

// Heap is the descriptor for one pool. It must stay reachable (and not
// be copied) for as long as any allocation from it is live: item headers
// point back at it from inside the pool, where the garbage collector
// cannot see the reference.
//
// The zero Heap is not usable; initialize it with Init or create one
// with New.
type Heap struct {
	name string

	start    uintptr // first pool byte, aligned up to Align
	poolSize uintptr // managed bytes, rounded down to Align

	availableSize uintptr // sum of all free payloads (headers excluded)
	maxUsedSize   uintptr // high-water mark of poolSize - availableSize

	// freeHeader is the free-list sentinel. It lives here, outside the
	// pool, stays permanently in the free state, and is never a
	// candidate for allocation. Its block links are nil and must not be
	// traversed; its free links form the circular free list.
	freeHeader item
	freeList   *item
	blockList  *item // lowest-addressed in-pool item

	lock *sem.Semaphore

	buf     []byte       // pins the pool for the garbage collector
	release func() error // non-nil when New owns the backing region

	stats opStats
}

// opStats counts operations for instrumentation; all fields are guarded
// by the heap semaphore.
type opStats struct {
	allocCalls   int
	freeCalls    int
	reallocCalls int
	splits       int
	merges       int
}

// Stats is a point-in-time snapshot of a heap's accounting.
type Stats struct {
	Name      string
	PoolSize  int
	Available int
	MaxUsed   int

	AllocCalls   int
	FreeCalls    int
	ReallocCalls int
	Splits       int
	Merges       int
}

// Init initializes h over the caller-provided pool and registers it.
// The usable range is buf aligned inward to Align on both ends; it must
// hold two headers plus MinPayload or Init fails with ErrPoolTooSmall.
//
// The initialized pool is laid out as
//
//	[ free body spanning the pool | zero-payload used tail ]
//
// where the tail's only job is to stop merging and iteration at the
// pool end.
func Init(h *Heap, name string, buf []byte) error {
	if h == nil {
		panic("memheap: Init with nil heap")
	}
	if h.lock != nil {
		panic("memheap: Init on an initialized heap")
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	start := alignUp(base, Align)
	pad := start - base
	if uintptr(len(buf)) < pad+2*HeaderSize+MinPayload {
		return ErrPoolTooSmall
	}
	size := alignDown(uintptr(len(buf))-pad, Align)
	if size < 2*HeaderSize+MinPayload {
		return ErrPoolTooSmall
	}

	h.name = name
	h.buf = buf
	h.start = start
	h.poolSize = size
	h.availableSize = size - 2*HeaderSize
	h.maxUsedSize = size - h.availableSize

	// Free-list sentinel: an empty circular list is a self-loop, so the
	// non-empty and empty cases share one insertion path with no nil
	// checks.
	fh := &h.freeHeader
	fh.magic = magicFree
	fh.pool = h
	fh.prev = nil
	fh.next = nil
	fh.nextFree = fh
	fh.prevFree = fh
	h.freeList = fh

	// Body item spanning the whole usable pool.
	body := itemAt(start)
	body.magic = magicFree
	body.pool = h
	tail := itemAt(start + HeaderSize + h.availableSize)
	body.prev = tail
	body.next = tail
	h.blockList = body

	body.nextFree = fh.nextFree
	body.prevFree = fh
	fh.nextFree.prevFree = body
	fh.nextFree = body

	// Tail sentinel: permanently used, payload size zero (its next wraps
	// to the block-list head), never on the free list.
	tail.magic = magicUsed
	tail.pool = h
	tail.next = body
	tail.prev = body
	tail.nextFree = nil
	tail.prevFree = nil

	h.lock = sem.New(name, 1)

	registerHeap(h)

	if debugHeap {
		debugLogf("init %q: start 0x%x, pool %d, available %d", name, start, size, h.availableSize)
	}
	return nil
}

// New creates a heap over a fresh anonymous memory region of the given
// size. Detach releases the region, so every allocation from the heap
// is invalid afterwards.
func New(name string, size int) (*Heap, error) {
	buf, release, err := region.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("memheap: backing region: %w", err)
	}
	h := &Heap{}
	if err := Init(h, name, buf); err != nil {
		_ = release()
		return nil, err
	}
	h.release = release
	return h, nil
}

// Detach unregisters the heap and interrupts any goroutine blocked on
// its semaphore (those operations fail with ErrLockFailed). The pool
// bytes are left untouched unless the heap owns its backing region
// (created by New), in which case the region is unmapped.
func (h *Heap) Detach() error {
	if h == nil || h.lock == nil {
		panic("memheap: Detach of an uninitialized heap")
	}
	unregisterHeap(h)
	h.lock.Close()
	if h.release != nil {
		err := h.release()
		h.release = nil
		h.buf = nil
		return err
	}
	return nil
}

// Name returns the name the heap was initialized with.
func (h *Heap) Name() string { return h.name }

// Stats returns a snapshot of the heap's accounting and op counters.
func (h *Heap) Stats() (Stats, error) {
	if err := h.lock.Acquire(); err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	s := Stats{
		Name:      h.name,
		PoolSize:  int(h.poolSize),
		Available: int(h.availableSize),
		MaxUsed:   int(h.maxUsedSize),

		AllocCalls:   h.stats.allocCalls,
		FreeCalls:    h.stats.freeCalls,
		ReallocCalls: h.stats.reallocCalls,
		Splits:       h.stats.splits,
		Merges:       h.stats.merges,
	}
	h.lock.Release()
	return s, nil
}

// noteUsage refreshes the high-water mark after availableSize shrank.
func (h *Heap) noteUsage() {
	if used := h.poolSize - h.availableSize; used > h.maxUsedSize {
		h.maxUsedSize = used
	}
}

// HeapOf returns the heap a payload pointer was allocated from, using
// the back reference in the item header. Panics if ptr does not carry a
// valid header.
func HeapOf(ptr unsafe.Pointer) *Heap {
	it := headerOf(ptr)
	it.checkMagic()
	return it.pool
}

// PayloadSize returns the usable byte count behind a payload pointer,
// which is at least the rounded-up size requested at allocation.
func PayloadSize(ptr unsafe.Pointer) int {
	it := headerOf(ptr)
	it.checkMagic()
	return int(it.payloadSize())
}

// Bytes returns the payload as a byte slice of the item's full usable
// size. The slice aliases pool memory and dies with the allocation.
func Bytes(ptr unsafe.Pointer) []byte {
	return unsafe.Slice((*byte)(ptr), PayloadSize(ptr))
}

// debugLogf prints trace messages when debugHeap is enabled.
func debugLogf(format string, args ...any) {
	if debugHeap {
		fmt.Fprintf(os.Stderr, "[MEMHEAP] "+format+"\n", args...)
	}
}

// debugTracef prints run-time trace lines; callers gate on logHeap.
func debugTracef(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[MEMHEAP] "+format+"\n", args...)
}
