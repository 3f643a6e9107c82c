// Package arena implements the append-only byte storage backing the variable
// length keys of memo tables.
//
// An Arena copies the bytes it is given into chunks of memory that it owns,
// decoupling the lifetime of the stored values from the buffers that callers
// pass in. Values never straddle chunk boundaries and chunks are never moved,
// which means that views returned by Bytes remain valid until Reset is called.
package arena

import (
	"errors"
	"fmt"
	"math"

	"github.com/segmentio/memo/internal/debug"
	"github.com/segmentio/memo/memory"
)

const (
	minChunkSize = 4096
	maxChunkSize = 64 * 1024 * 1024
)

// ErrTooLarge is returned when appending a value which length cannot be
// represented by a Ref.
var ErrTooLarge = errors.New("value too large to be stored in an arena")

// Ref locates a value stored in an Arena.
type Ref struct {
	Chunk  uint32
	Offset uint32
	Length uint32
}

// Arena is an append-only chain of byte chunks.
//
// The zero-value is a valid empty arena allocating memory from the Go heap.
type Arena struct {
	alloc  memory.Allocator
	chunks [][]byte
	used   int
	size   int
	cap    int
}

// New constructs an arena obtaining its memory from alloc. If alloc is nil,
// memory.DefaultAllocator is used.
func New(alloc memory.Allocator) *Arena {
	return &Arena{alloc: alloc}
}

func (a *Arena) allocator() memory.Allocator {
	if a.alloc != nil {
		return a.alloc
	}
	return memory.DefaultAllocator
}

// Len returns the number of bytes stored in the arena.
func (a *Arena) Len() int { return a.size }

// Cap returns the number of bytes of memory held by the arena.
func (a *Arena) Cap() int { return a.cap }

// Append copies b into the arena and returns its location.
//
// If the arena needs to grow and memory cannot be obtained from the allocator,
// the method returns an error and the arena is left unchanged.
func (a *Arena) Append(b []byte) (Ref, error) {
	if len(b) == 0 {
		return Ref{}, nil
	}
	if uint64(len(b)) > math.MaxUint32 {
		return Ref{}, fmt.Errorf("appending %d bytes: %w", len(b), ErrTooLarge)
	}

	if n := len(a.chunks); n == 0 || a.used+len(b) > len(a.chunks[n-1]) {
		if err := a.grow(len(b)); err != nil {
			return Ref{}, err
		}
	}

	i := len(a.chunks) - 1
	j := a.used
	copy(a.chunks[i][j:], b)
	a.used += len(b)
	a.size += len(b)
	return Ref{Chunk: uint32(i), Offset: uint32(j), Length: uint32(len(b))}, nil
}

func (a *Arena) grow(minSize int) error {
	size := minChunkSize
	if n := len(a.chunks); n > 0 {
		size = 2 * len(a.chunks[n-1])
	}
	if size > maxChunkSize {
		size = maxChunkSize
	}
	if size < minSize {
		size = minSize
	}
	chunk, err := a.allocator().Allocate(size)
	if err != nil {
		return fmt.Errorf("growing arena from %d to %d bytes: %w", a.cap, a.cap+size, err)
	}

	a.chunks = append(a.chunks, chunk)
	a.used = 0
	a.cap += size
	debug.Log("msg", "arena grow", "chunks", len(a.chunks), "chunk_size", size, "cap", a.cap)
	return nil
}

// Bytes returns a view of the value at r. The returned slice must not be
// modified, and is valid until the arena is reset.
func (a *Arena) Bytes(r Ref) []byte {
	if r.Length == 0 {
		return []byte{}
	}
	i := r.Offset
	j := r.Offset + r.Length
	return a.chunks[r.Chunk][i:j:j]
}

// Reset releases all memory held by the arena. All refs previously returned by
// Append become invalid, and so do the views returned by Bytes.
func (a *Arena) Reset() {
	// Overwrite released memory in debug mode so views used after a reset
	// return garbage instead of values which look valid.
	debug.Do(func() {
		for _, chunk := range a.chunks {
			for i := range chunk {
				chunk[i] = 0xFF
			}
		}
	})

	alloc := a.allocator()
	for i, chunk := range a.chunks {
		alloc.Free(chunk)
		a.chunks[i] = nil
	}
	a.chunks = a.chunks[:0]
	a.used = 0
	a.size = 0
	a.cap = 0
}
