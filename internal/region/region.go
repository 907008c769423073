// Package region provides pool backing memory for heaps: anonymous,
// zero-filled byte ranges that live outside the garbage-collected heap
// where the platform allows it.
package region
