//go:build !unix

package memory

// MmapAllocator falls back to the Go heap on platforms without mmap.
type MmapAllocator struct{}

func (MmapAllocator) Allocate(size int) ([]byte, error) { return goheap{}.Allocate(size) }

func (MmapAllocator) Free(b []byte) {}
