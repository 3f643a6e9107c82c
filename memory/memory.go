// Package memory defines the allocator handles through which memo tables and
// their arenas obtain memory.
//
// Allocators have no effect on the behavior of the data structures built on
// top of them, only on where memory comes from and on how much of it may be
// obtained. Running out of memory is reported as an error rather than a crash,
// which lets callers abort an encoding pass without corrupting the tables.
package memory

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrLimitExceeded is returned by allocators created with NewLimitedAllocator
// when an allocation would push the amount of outstanding memory beyond the
// configured limit.
var ErrLimitExceeded = errors.New("memory limit exceeded")

// Allocator is the interface implemented by memory providers.
//
// Allocate returns a zeroed byte slice of the requested length. The first byte
// of the returned slice must be aligned on an 8 bytes boundary. Free releases
// a slice previously returned by Allocate; the slice must be passed unmodified
// (same length and capacity), and must not be used after being freed.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Free(b []byte)
}

// DefaultAllocator is the allocator used when none is configured. It is
// initialized to use the standard Go memory allocator.
var DefaultAllocator Allocator = goheap{}

type goheap struct{}

func (goheap) Allocate(size int) ([]byte, error) {
	if size < 0 {
		panic("invalid negative memory allocation size")
	}
	return make([]byte, size), nil
}

func (goheap) Free([]byte) {}

// LimitedAllocator wraps an Allocator and caps the number of bytes that may be
// outstanding at any given time. It is safe to share a LimitedAllocator between
// tables used by different goroutines, the accounting is done with atomic
// operations.
type LimitedAllocator struct {
	parent Allocator
	limit  int64
	inuse  int64
}

// NewLimitedAllocator returns an allocator which obtains memory from parent
// (or DefaultAllocator if nil) until limit bytes are in use.
func NewLimitedAllocator(parent Allocator, limit int64) *LimitedAllocator {
	if parent == nil {
		parent = DefaultAllocator
	}
	return &LimitedAllocator{parent: parent, limit: limit}
}

func (a *LimitedAllocator) Allocate(size int) ([]byte, error) {
	if size < 0 {
		panic("invalid negative memory allocation size")
	}
	n := int64(size)
	if inuse := atomic.AddInt64(&a.inuse, n); inuse > a.limit {
		atomic.AddInt64(&a.inuse, -n)
		return nil, fmt.Errorf("allocating %d bytes with %d/%d in use: %w", size, inuse-n, a.limit, ErrLimitExceeded)
	}
	b, err := a.parent.Allocate(size)
	if err != nil {
		atomic.AddInt64(&a.inuse, -n)
		return nil, err
	}
	return b, nil
}

func (a *LimitedAllocator) Free(b []byte) {
	if b == nil {
		return
	}
	atomic.AddInt64(&a.inuse, -int64(len(b)))
	a.parent.Free(b)
}

// InUse returns the number of bytes currently allocated.
func (a *LimitedAllocator) InUse() int64 { return atomic.LoadInt64(&a.inuse) }

// Limit returns the maximum number of bytes that may be allocated.
func (a *LimitedAllocator) Limit() int64 { return a.limit }

var (
	_ Allocator = goheap{}
	_ Allocator = (*LimitedAllocator)(nil)
	_ Allocator = MmapAllocator{}
)
