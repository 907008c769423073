// Package memsys layers a process-wide allocation façade over memheap:
// one designated system heap plus a fallback walk across every other
// registered heap when the system heap runs out.
//
// The façade is optional. Programs that manage their heaps directly can
// ignore it and call memheap operations on explicit descriptors.
package memsys

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ivanyangcn/rt-thread/memheap"
)

// ErrNotInitialized is returned before Init by the operations that need
// the system heap: Malloc, Calloc, Realloc of nil, MemoryInfo and
// Shutdown. Free and Realloc of a non-nil pointer go to the pointer's
// own heap and do not return it.
var ErrNotInitialized = errors.New("memsys: system heap not initialized")

var (
	mu     sync.RWMutex
	system *memheap.Heap
)

// Init initializes the system heap over the caller-provided pool.
func Init(buf []byte) error {
	mu.Lock()
	defer mu.Unlock()
	if system != nil {
		return fmt.Errorf("memsys: already initialized over heap %q", system.Name())
	}
	h := &memheap.Heap{}
	if err := memheap.Init(h, "heap", buf); err != nil {
		return err
	}
	system = h
	return nil
}

// InitSize initializes the system heap over a fresh anonymous region of
// the given size.
func InitSize(size int) error {
	mu.Lock()
	defer mu.Unlock()
	if system != nil {
		return fmt.Errorf("memsys: already initialized over heap %q", system.Name())
	}
	h, err := memheap.New("heap", size)
	if err != nil {
		return err
	}
	system = h
	return nil
}

// Shutdown detaches the system heap. Outstanding façade allocations are
// invalid afterwards.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if system == nil {
		return ErrNotInitialized
	}
	err := system.Detach()
	system = nil
	return err
}

func systemHeap() (*memheap.Heap, error) {
	mu.RLock()
	defer mu.RUnlock()
	if system == nil {
		return nil, ErrNotInitialized
	}
	return system, nil
}

// Malloc allocates from the system heap, falling back to every other
// registered heap in registration order when the system heap is
// exhausted.
func Malloc(size int) (unsafe.Pointer, error) {
	sys, err := systemHeap()
	if err != nil {
		return nil, err
	}
	p, err := sys.Alloc(size)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, memheap.ErrNoMemory) {
		return nil, err
	}
	for _, h := range memheap.Heaps() {
		if h == sys {
			continue
		}
		p, err := h.Alloc(size)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, memheap.ErrNoMemory) {
			return nil, err
		}
	}
	return nil, memheap.ErrNoMemory
}

// Calloc allocates count*size bytes and zeroes them.
func Calloc(count, size int) (unsafe.Pointer, error) {
	if count < 0 || size < 0 {
		panic("memsys: Calloc with negative count or size")
	}
	total := count * size
	if size != 0 && total/size != count {
		return nil, memheap.ErrNoMemory
	}
	p, err := Malloc(total)
	if err != nil {
		return nil, err
	}
	b := memheap.Bytes(p)
	clear(b)
	return p, nil
}

// Free releases a façade allocation. The pointer self-identifies its
// heap, so allocations that fell back to a secondary heap are returned
// to that heap.
func Free(ptr unsafe.Pointer) error {
	return memheap.Free(ptr)
}

// Realloc resizes an allocation, trying the owning heap in place first
// and then moving the payload through Malloc, which may land it on a
// different registered heap.
func Realloc(ptr unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if ptr == nil {
		return Malloc(size)
	}
	if size == 0 {
		if err := Free(ptr); err != nil {
			return nil, err
		}
		return nil, nil
	}

	h := memheap.HeapOf(ptr)
	p, err := h.Realloc(ptr, size)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, memheap.ErrNoMemory) {
		return nil, err
	}

	// The owning heap is full even for a moved copy: place the payload
	// on any heap that still has room.
	oldSize := memheap.PayloadSize(ptr)
	np, err := Malloc(size)
	if err != nil {
		return nil, err
	}
	n := min(oldSize, size)
	copy(memheap.Bytes(np)[:n], memheap.Bytes(ptr)[:n])
	if err := Free(ptr); err != nil {
		return nil, err
	}
	return np, nil
}

// MemoryInfo reports the system heap's pool size, bytes in use, and
// high-water usage mark.
func MemoryInfo() (total, used, maxUsed int, err error) {
	sys, err := systemHeap()
	if err != nil {
		return 0, 0, 0, err
	}
	s, err := sys.Stats()
	if err != nil {
		return 0, 0, 0, err
	}
	return s.PoolSize, s.PoolSize - s.Available, s.MaxUsed, nil
}
