package memheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestFree_NilIsNoop(t *testing.T) {
	require.NoError(t, Free(nil))
}

func TestFree_MergesRightNeighbor(t *testing.T) {
	h := newTestHeap(t, 2048)

	// [A][hole][rest]: freeing A merges it with the hole to its right.
	a, err := h.Alloc(24)
	require.NoError(t, err)
	hole, err := h.Alloc(24)
	require.NoError(t, err)
	wall, err := h.Alloc(24)
	require.NoError(t, err)
	require.NoError(t, Free(hole))

	require.NoError(t, Free(a))
	merged := h.blockList
	require.False(t, merged.isUsed())
	require.Equal(t, uintptr(2*24)+HeaderSize, merged.payloadSize())

	checkHeapInvariants(t, h)
	require.NoError(t, Free(wall))
}

func TestFree_DoubleCoalesceRestoresSingleBody(t *testing.T) {
	h := newTestHeap(t, 2048)
	before := h.availableSize

	// Slice the pool into [A][G][B][rest] and free G to get
	// [used][free][used][free].
	a, err := h.Alloc(24)
	require.NoError(t, err)
	g, err := h.Alloc(24)
	require.NoError(t, err)
	b, err := h.Alloc(24)
	require.NoError(t, err)
	require.NoError(t, Free(g))
	checkHeapInvariants(t, h)

	// Freeing A merges with the G hole on its right.
	require.NoError(t, Free(a))
	checkHeapInvariants(t, h)

	// Freeing B merges left into that region and right into the rest,
	// collapsing the pool to its initial single free body.
	require.NoError(t, Free(b))
	checkHeapInvariants(t, h)
	require.Equal(t, before, h.availableSize)
	require.Same(t, h.blockList.next, h.blockList.prev)
}

func TestFree_LeftMergeSkipsFreeListInsert(t *testing.T) {
	h := newTestHeap(t, 2048)

	a, err := h.Alloc(24)
	require.NoError(t, err)
	b, err := h.Alloc(24)
	require.NoError(t, err)
	wall, err := h.Alloc(24)
	require.NoError(t, err)

	require.NoError(t, Free(a))
	require.NoError(t, Free(b)) // left-merges into a's block

	// One merged free block before the wall, not two entries.
	count := 0
	for f := h.freeList.nextFree; f != h.freeList; f = f.nextFree {
		count++
	}
	require.Equal(t, 2, count) // merged block + trailing rest

	checkHeapInvariants(t, h)
	require.NoError(t, Free(wall))
}

func TestFree_DoubleFreePanics(t *testing.T) {
	h := newTestHeap(t, 1024)
	p, err := h.Alloc(32)
	require.NoError(t, err)
	wall, err := h.Alloc(32)
	require.NoError(t, err)

	require.NoError(t, Free(p))
	require.PanicsWithValue(t, "memheap: double free", func() {
		_ = Free(p)
	})
	require.NoError(t, Free(wall))
}

func TestFree_CorruptedHeaderPanics(t *testing.T) {
	h := newTestHeap(t, 1024)
	p, err := h.Alloc(32)
	require.NoError(t, err)

	it := headerOf(p)
	saved := it.magic
	it.magic = 0xdeadbeef
	require.PanicsWithValue(t, "memheap: corrupted block header (bad magic)", func() {
		_ = Free(p)
	})
	it.magic = saved
	require.NoError(t, Free(p))
}

func TestFree_OverrunIntoNextHeaderPanics(t *testing.T) {
	h := newTestHeap(t, 1024)
	p, err := h.Alloc(32)
	require.NoError(t, err)

	// Simulate a write past the payload end: clobber the following
	// item's magic.
	it := headerOf(p)
	next := it.next
	saved := next.magic
	next.magic = 0
	require.PanicsWithValue(t, "memheap: corrupted block header (bad magic)", func() {
		_ = Free(p)
	})
	next.magic = saved
}

func TestFree_WallsPreventMergeAcrossUsedBlocks(t *testing.T) {
	h := newTestHeap(t, 4096)

	var ptrs []unsafe.Pointer
	for i := 0; i < 6; i++ {
		p, err := h.Alloc(32)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}

	// Free every other block: no merges possible, three separate holes.
	for i := 0; i < 6; i += 2 {
		require.NoError(t, Free(ptrs[i]))
	}
	count := 0
	for f := h.freeList.nextFree; f != h.freeList; f = f.nextFree {
		count++
	}
	require.Equal(t, 4, count) // three holes + trailing rest
	checkHeapInvariants(t, h)

	for i := 1; i < 6; i += 2 {
		require.NoError(t, Free(ptrs[i]))
	}
	checkHeapInvariants(t, h)
	require.Same(t, h.blockList.next, h.blockList.prev)
}
