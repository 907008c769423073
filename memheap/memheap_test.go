package memheap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_SingleFreeBody(t *testing.T) {
	h := newTestHeap(t, 1024)

	require.Equal(t, h.poolSize-2*HeaderSize, h.availableSize)
	require.Equal(t, 2*HeaderSize, h.maxUsedSize)

	// Exactly one non-sentinel item on the free list, spanning the pool.
	body := h.freeList.nextFree
	require.NotSame(t, h.freeList, body)
	require.Same(t, h.freeList, body.nextFree)
	require.Equal(t, h.availableSize, body.payloadSize())

	checkHeapInvariants(t, h)
}

func TestInit_RejectsTinyPool(t *testing.T) {
	h := &Heap{}
	err := Init(h, "tiny", make([]byte, int(2*HeaderSize)+MinPayload/2))
	require.ErrorIs(t, err, ErrPoolTooSmall)

	err = Init(h, "empty", nil)
	require.ErrorIs(t, err, ErrPoolTooSmall)
}

func TestInit_UnalignedBuffer(t *testing.T) {
	// Slice the buffer at an odd offset; Init must align inward.
	raw := make([]byte, 2048)
	h := &Heap{}
	require.NoError(t, Init(h, "unaligned", raw[1:2047]))
	defer func() { require.NoError(t, h.Detach()) }()

	require.Zero(t, h.start%Align)
	require.Zero(t, h.poolSize%Align)
	checkHeapInvariants(t, h)

	p, err := h.Alloc(16)
	require.NoError(t, err)
	require.Zero(t, uintptr(p)%Align)
	require.NoError(t, Free(p))
}

func TestInit_NilHeapPanics(t *testing.T) {
	require.PanicsWithValue(t, "memheap: Init with nil heap", func() {
		_ = Init(nil, "nil", make([]byte, 1024))
	})
}

func TestNew_RegionBacked(t *testing.T) {
	h, err := New("mapped", 64*1024)
	require.NoError(t, err)

	p, err := h.Alloc(128)
	require.NoError(t, err)
	b := Bytes(p)
	for i := range b {
		b[i] = 0xA5
	}
	require.NoError(t, Free(p))
	checkHeapInvariants(t, h)

	require.NoError(t, h.Detach())
}

func TestRegistry_InitRegistersDetachUnregisters(t *testing.T) {
	h := newTestHeap(t, 1024)

	require.Contains(t, Heaps(), h)
	require.Same(t, h, Lookup(t.Name()))

	require.NoError(t, h.Detach())
	require.NotContains(t, Heaps(), h)
	require.Nil(t, Lookup(t.Name()))
}

func TestDetach_FailsPendingOperations(t *testing.T) {
	h := newTestHeap(t, 1024)
	p, err := h.Alloc(32)
	require.NoError(t, err)

	require.NoError(t, h.Detach())

	_, err = h.Alloc(32)
	require.ErrorIs(t, err, ErrLockFailed)
	_, err = h.Realloc(p, 64)
	require.ErrorIs(t, err, ErrLockFailed)
	require.ErrorIs(t, Free(p), ErrLockFailed)
}

func TestStats_CountsOperations(t *testing.T) {
	h := newTestHeap(t, 4096)

	p1, err := h.Alloc(32)
	require.NoError(t, err)
	p2, err := h.Alloc(32)
	require.NoError(t, err)
	require.NoError(t, Free(p2))
	p1, err = h.Realloc(p1, 512)
	require.NoError(t, err)
	require.NoError(t, Free(p1))

	s, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, t.Name(), s.Name)
	assert.Equal(t, int(h.poolSize), s.PoolSize)
	assert.Equal(t, s.PoolSize-2*int(HeaderSize), s.Available)
	assert.GreaterOrEqual(t, s.AllocCalls, 2)
	assert.Equal(t, 2, s.FreeCalls)
	assert.Equal(t, 1, s.ReallocCalls)
	assert.Positive(t, s.Splits)
	assert.Positive(t, s.Merges)
	assert.GreaterOrEqual(t, s.MaxUsed, s.PoolSize-s.Available)
}

func TestHeapOf_RecoversOwner(t *testing.T) {
	h1 := newTestHeap(t, 1024)
	h2, err := New("other", 4096)
	require.NoError(t, err)
	defer func() { require.NoError(t, h2.Detach()) }()

	p1, err := h1.Alloc(16)
	require.NoError(t, err)
	p2, err := h2.Alloc(16)
	require.NoError(t, err)

	require.Same(t, h1, HeapOf(p1))
	require.Same(t, h2, HeapOf(p2))

	require.NoError(t, Free(p1))
	require.NoError(t, Free(p2))
}
