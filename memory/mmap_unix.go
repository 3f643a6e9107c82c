//go:build unix

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAllocator obtains memory from anonymous private mappings, outside of the
// Go heap. Memory is returned to the operating system when freed, which makes
// it a good fit for large dictionaries that are reset between pages.
//
// Slices allocated by a MmapAllocator must not hold Go pointers.
type MmapAllocator struct{}

func (MmapAllocator) Allocate(size int) ([]byte, error) {
	if size < 0 {
		panic("invalid negative memory allocation size")
	}
	if size == 0 {
		return []byte{}, nil
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap of %d bytes: %w", size, err)
	}
	return b, nil
}

func (MmapAllocator) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	_ = unix.Munmap(b)
}
