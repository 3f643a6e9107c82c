package memory_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmentio/memo/memory"
)

func TestDefaultAllocator(t *testing.T) {
	b, err := memory.DefaultAllocator.Allocate(100)
	require.NoError(t, err)
	assert.Len(t, b, 100)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte at index %d is not zero: %d", i, c)
		}
	}
	memory.DefaultAllocator.Free(b)
}

func TestLimitedAllocator(t *testing.T) {
	a := memory.NewLimitedAllocator(nil, 1024)

	b1, err := a.Allocate(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), a.InUse())

	_, err = a.Allocate(25)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrLimitExceeded), "unexpected error: %v", err)
	assert.Equal(t, int64(1000), a.InUse(), "failed allocations must not be accounted")

	b2, err := a.Allocate(24)
	require.NoError(t, err)
	assert.Equal(t, a.Limit(), a.InUse())

	a.Free(b1)
	a.Free(b2)
	assert.Equal(t, int64(0), a.InUse())
}

func TestLimitedAllocatorConcurrent(t *testing.T) {
	const N = 16
	a := memory.NewLimitedAllocator(nil, N*64)
	wg := sync.WaitGroup{}

	for i := 0; i < N; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b, err := a.Allocate(64)
				if err != nil {
					t.Error(err)
					return
				}
				a.Free(b)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int64(0), a.InUse())
}

func TestMmapAllocator(t *testing.T) {
	a := memory.MmapAllocator{}

	b, err := a.Allocate(3 * 4096)
	require.NoError(t, err)
	require.Len(t, b, 3*4096)

	for i := range b {
		b[i] = byte(i)
	}
	for i := range b {
		if b[i] != byte(i) {
			t.Fatalf("wrong byte at index %d: %d", i, b[i])
		}
	}
	a.Free(b)

	z, err := a.Allocate(0)
	require.NoError(t, err)
	assert.Len(t, z, 0)
	a.Free(z)
}
