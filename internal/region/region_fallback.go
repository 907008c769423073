//go:build !unix

package region

import "fmt"

// Alloc returns a zeroed byte range from the regular Go heap on
// platforms without an anonymous-mapping path. The release function
// does nothing and returns nil; the garbage collector reclaims the
// range once it is no longer referenced.
func Alloc(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("region: non-positive size %d", size)
	}
	data := make([]byte, size)
	return data, func() error { return nil }, nil
}
