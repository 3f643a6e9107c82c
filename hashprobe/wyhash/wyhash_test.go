package wyhash

import (
	"math/rand"
	"testing"
	"time"
	"unsafe"
)

func TestHash32(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("test vectors are for 64 bits platforms")
	}
	if h := Hash32(42, 1); uint64(h) != 0x6e69a6ede6b5a25e {
		t.Errorf("hash mismatch: %016x", h)
	}
}

func TestHash64(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("test vectors are for 64 bits platforms")
	}
	for _, test := range []struct {
		value uint64
		seed  uintptr
		hash  uint64
	}{
		{value: 42, seed: 1, hash: 0x6e69a6ede6b5a25e},
		{value: 42, seed: 2, hash: 0xe1b97b60de5501d4},
		{value: 0, seed: 0, hash: 0x0b7b9a4f1a253000},
	} {
		if h := Hash64(test.value, test.seed); uint64(h) != test.hash {
			t.Errorf("hash(%d, %d): want=%016x got=%016x", test.value, test.seed, test.hash, h)
		}
	}
}

func TestHash128(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("test vectors are for 64 bits platforms")
	}
	var value [16]byte
	for i := range value {
		value[i] = byte(i)
	}
	if h := Hash128(value, 1); uint64(h) != 0x4b11bcabc925ab3a {
		t.Errorf("hash mismatch: %016x", h)
	}
}

func TestMultiHash32(t *testing.T) {
	const N = 10
	hashes := [N]uintptr{}
	values := [N]uint32{}
	seed := uintptr(32)

	for i := range values {
		values[i] = uint32(i)
	}

	MultiHash32(hashes[:], values[:], seed)

	for i := range values {
		h := Hash32(values[i], seed)

		if h != hashes[i] {
			t.Errorf("hash(%d): want=%08x got=%08x", values[i], h, hashes[i])
		}
	}
}

func TestMultiHash64(t *testing.T) {
	const N = 10
	hashes := [N]uintptr{}
	values := [N]uint64{}
	seed := uintptr(64)

	for i := range values {
		values[i] = uint64(i)
	}

	MultiHash64(hashes[:], values[:], seed)

	for i := range values {
		h := Hash64(values[i], seed)

		if h != hashes[i] {
			t.Errorf("hash(%d): want=%016x got=%016x", values[i], h, hashes[i])
		}
	}
}

func TestMultiHash128(t *testing.T) {
	const N = 10
	hashes := [N]uintptr{}
	values := [N][16]byte{}
	seed := uintptr(128)

	for i := range values {
		values[i][0] = byte(i)
	}

	MultiHash128(hashes[:], values[:], seed)

	for i := range values {
		h := Hash128(values[i], seed)

		if h != hashes[i] {
			t.Errorf("hash(%x): want=%016x got=%016x", values[i], h, hashes[i])
		}
	}
}

func BenchmarkHash64(b *testing.B) {
	b.SetBytes(8)
	value := rand.Uint64()
	benchmarkHashThroughput(b, func(seed uintptr) int {
		value = uint64(Hash64(value, seed))
		return 1
	})
}

func BenchmarkMultiHash64(b *testing.B) {
	hashes := [512]uintptr{}
	values := [512]uint64{}
	b.SetBytes(8 * int64(len(hashes)))
	benchmarkHashThroughput(b, func(seed uintptr) int {
		MultiHash64(hashes[:], values[:], seed)
		return len(hashes)
	})
}

func benchmarkHashThroughput(b *testing.B, f func(uintptr) int) {
	hashes := int64(0)
	start := time.Now()

	for i := 0; i < b.N; i++ {
		hashes += int64(f(uintptr(i)))
	}

	seconds := time.Since(start).Seconds()
	b.ReportMetric(float64(hashes)/seconds, "hash/s")
}
