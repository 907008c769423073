package memheap

import "errors"

var (
	// ErrNoMemory indicates that no free item large enough was found.
	// The heap is left unchanged; the caller may free memory and retry.
	ErrNoMemory = errors.New("memheap: no block large enough")

	// ErrLockFailed indicates the heap's semaphore could not be taken,
	// typically because the heap was detached while the caller waited.
	ErrLockFailed = errors.New("memheap: heap lock unavailable")

	// ErrPoolTooSmall indicates the pool cannot hold the two mandatory
	// headers plus one minimum payload.
	ErrPoolTooSmall = errors.New("memheap: pool too small")
)
