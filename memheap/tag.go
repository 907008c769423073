package memheap

import "unsafe"

// TagSize is the owner-tag capacity in bytes: the storage of the two
// free-list links, which an allocated item does not use.
const TagSize = int(2 * Align)

// tagWindow exposes the free-link storage of an item as bytes. Only
// valid while the item is allocated; the same bytes are live list links
// whenever the item is free.
func tagWindow(it *item) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&it.prevFree)), TagSize)
}

// SetTag records a short owner name on an allocated item, for Dump
// output. The tag is truncated to TagSize bytes and lives only until
// the item is freed: its storage is reclaimed by the free-list links.
// Tagging nil is a no-op; tagging a freed block panics.
func SetTag(ptr unsafe.Pointer, tag string) {
	if ptr == nil {
		return
	}
	it := headerOf(ptr)
	it.checkMagic()
	if !it.isUsed() {
		panic("memheap: SetTag of a freed block")
	}
	w := tagWindow(it)
	n := copy(w, tag)
	if n < len(w) {
		w[n] = 0
	}
}

// Tag returns the owner name recorded by SetTag, or "" if none was set
// since the item was allocated.
func Tag(ptr unsafe.Pointer) string {
	if ptr == nil {
		return ""
	}
	it := headerOf(ptr)
	it.checkMagic()
	if !it.isUsed() {
		panic("memheap: Tag of a freed block")
	}
	return itemTag(it)
}

func itemTag(it *item) string {
	w := tagWindow(it)
	n := 0
	for n < len(w) && w[n] != 0 {
		n++
	}
	return string(w[:n])
}
