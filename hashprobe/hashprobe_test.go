package hashprobe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/segmentio/memo/memory"
)

func TestNextPowerOf2(t *testing.T) {
	for _, test := range []struct{ n, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {63, 64}, {64, 64}, {65, 128}, {1000, 1024},
	} {
		if got := nextPowerOf2(test.n); got != test.want {
			t.Errorf("nextPowerOf2(%d): want=%d got=%d", test.n, test.want, got)
		}
	}
}

func TestMaxLenLeavesFreeSlot(t *testing.T) {
	for _, maxLoad := range []float64{0.1, 0.5, 0.75, 0.9, 0.999} {
		for cap := minCapacity; cap <= 1<<16; cap *= 2 {
			if n := maxLenOf(cap, maxLoad); n >= cap {
				t.Errorf("maxLenOf(%d, %g) = %d leaves no free slot", cap, maxLoad, n)
			}
		}
	}
}

func TestUint64TableProbeOneByOne(t *testing.T) {
	const N = 500
	table := NewUint64Table(0, 0.9, nil)

	for n := 0; n < 2; n++ {
		// Do two passes, all should behave the same.
		for i := 1; i <= N; i++ {
			v, found, err := table.Probe(uint64(i), int32(i-1))
			if err != nil {
				t.Fatal(err)
			}
			if found != (n == 1) {
				t.Errorf("wrong found flag for key=%d in pass %d: %t", i, n, found)
			}
			if v != int32(i-1) {
				t.Errorf("wrong value probed for key=%d: want=%d got=%d", i, i-1, v)
			}
		}
	}

	if table.Len() != N {
		t.Errorf("wrong table length: want=%d got=%d", N, table.Len())
	}
}

func TestUint32TableLookup(t *testing.T) {
	table := NewUint32Table(0, 0, nil)

	if _, ok := table.Lookup(42); ok {
		t.Fatal("key found in empty table")
	}

	for i := uint32(0); i < 1000; i += 2 {
		if _, _, err := table.Probe(i, int32(i)); err != nil {
			t.Fatal(err)
		}
	}

	for i := uint32(0); i < 1000; i++ {
		v, ok := table.Lookup(i)
		if ok != (i%2 == 0) {
			t.Fatalf("wrong lookup result for key=%d: %t", i, ok)
		}
		if ok && v != int32(i) {
			t.Fatalf("wrong value for key=%d: %d", i, v)
		}
	}

	if table.Len() != 500 {
		t.Errorf("lookups changed the table length: %d", table.Len())
	}
}

func TestUint128Table(t *testing.T) {
	table := NewUint128Table(0, 0, nil)
	keys := make([][16]byte, 300)
	prng := rand.New(rand.NewSource(0))

	for i := range keys {
		prng.Read(keys[i][:])
		if _, found, err := table.Probe(keys[i], int32(i)); err != nil || found {
			t.Fatalf("probing new key %x: found=%t err=%v", keys[i], found, err)
		}
	}

	for i, k := range keys {
		if v, ok := table.Lookup(k); !ok || v != int32(i) {
			t.Errorf("wrong lookup result for key %x: %d %t", k, v, ok)
		}
	}
}

func TestTableGrowth(t *testing.T) {
	table := NewUint64Table(0, 0.5, nil)
	initialCap := table.Cap()

	for i := 0; i < 10*initialCap; i++ {
		if _, _, err := table.Probe(uint64(i), int32(i)); err != nil {
			t.Fatal(err)
		}
		if float64(table.Len()) > 0.5*float64(table.Cap()) {
			t.Fatalf("load factor exceeded: len=%d cap=%d", table.Len(), table.Cap())
		}
	}

	if table.Cap() <= initialCap {
		t.Errorf("table did not grow: cap=%d", table.Cap())
	}

	n := 0
	table.Range(func(key uint64, value int32) bool {
		if int32(key) != value {
			t.Errorf("entry corrupted by rehashing: key=%d value=%d", key, value)
		}
		n++
		return true
	})
	if n != table.Len() {
		t.Errorf("wrong number of entries visited: want=%d got=%d", table.Len(), n)
	}
}

func TestTableReserve(t *testing.T) {
	table := NewUint32Table(0, 0.75, nil)

	if err := table.Reserve(1000); err != nil {
		t.Fatal(err)
	}
	cap := table.Cap()

	for i := 0; i < 1000; i++ {
		table.Probe(uint32(i), int32(i))
	}

	if table.Cap() != cap {
		t.Errorf("table grew after reserving capacity: %d -> %d", cap, table.Cap())
	}
}

func TestTableReset(t *testing.T) {
	table := NewUint64Table(0, 0, nil)

	for i := 0; i < 100; i++ {
		table.Probe(uint64(i), int32(i))
	}
	cap := table.Cap()
	table.Reset()

	if table.Len() != 0 {
		t.Errorf("table not empty after reset: %d", table.Len())
	}
	if table.Cap() != cap {
		t.Errorf("reset changed the table capacity: %d -> %d", cap, table.Cap())
	}
	for i := 0; i < 100; i++ {
		if _, ok := table.Lookup(uint64(i)); ok {
			t.Fatalf("key %d found after reset", i)
		}
	}

	if v, found, _ := table.Probe(7, 0); found || v != 0 {
		t.Errorf("wrong probe result after reset: value=%d found=%t", v, found)
	}
}

func TestTableAllocationFailure(t *testing.T) {
	alloc := memory.NewLimitedAllocator(nil, 2048)
	table := NewUint64Table(0, 0.5, alloc)

	// 64 slots * (8 + 4) bytes + 8 bytes of flags fit in the limit, the next
	// growth to 128 slots does not.
	inserted := 0
	var err error
	for i := 0; err == nil; i++ {
		_, _, err = table.Probe(uint64(i), int32(i))
		if err == nil {
			inserted++
		}
	}

	if !errors.Is(err, memory.ErrLimitExceeded) {
		t.Fatalf("expected memory.ErrLimitExceeded, got %v", err)
	}
	if table.Len() != inserted {
		t.Errorf("failed probe changed the table length: want=%d got=%d", inserted, table.Len())
	}
	for i := 0; i < inserted; i++ {
		if v, ok := table.Lookup(uint64(i)); !ok || v != int32(i) {
			t.Fatalf("table corrupted after failed growth: key=%d value=%d found=%t", i, v, ok)
		}
	}
	if v, found, err := table.Probe(0, 99); err != nil || !found || v != 0 {
		t.Errorf("existing keys must still be found when the table is full: value=%d found=%t err=%v", v, found, err)
	}

	table.Release()
	if alloc.InUse() != 0 {
		t.Errorf("release did not free the table memory: %d bytes in use", alloc.InUse())
	}
}

func TestTableMultiProbe(t *testing.T) {
	for _, size := range []int{0, 1, 10, 511, 512, 513, 2000} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			table := NewUint64Table(0, 0, nil)
			table.Probe(3, 0)

			keys := make([]uint64, size)
			for i := range keys {
				keys[i] = uint64(i % 700)
			}
			values := make([]int32, size)

			if err := table.MultiProbe(keys, values, 1); err != nil {
				t.Fatal(err)
			}

			// Key 3 keeps its value, the others are numbered in order of
			// first appearance starting at 1.
			next := int32(1)
			seen := map[uint64]int32{3: 0}
			for i, key := range keys {
				want, ok := seen[key]
				if !ok {
					want = next
					seen[key] = want
					next++
				}
				if values[i] != want {
					t.Fatalf("wrong value for key %d at position %d: want=%d got=%d", key, i, want, values[i])
				}
			}
			if table.Len() != len(seen) {
				t.Errorf("wrong table length: want=%d got=%d", len(seen), table.Len())
			}
			for key, want := range seen {
				if v, ok := table.Lookup(key); !ok || v != want {
					t.Errorf("wrong lookup result for key=%d: want=%d got=%d (found=%t)", key, want, v, ok)
				}
			}
		})
	}
}

func TestTableMultiProbeAllocationFailure(t *testing.T) {
	alloc := memory.NewLimitedAllocator(nil, 2048)
	table := NewUint64Table(0, 0.5, alloc)
	defer table.Release()

	for i := 0; i < 10; i++ {
		table.Probe(uint64(i), int32(i))
	}

	keys := make([]uint64, 100)
	for i := range keys {
		keys[i] = uint64(i)
	}
	values := make([]int32, len(keys))

	err := table.MultiProbe(keys, values, 10)
	if !errors.Is(err, memory.ErrLimitExceeded) {
		t.Fatalf("expected memory.ErrLimitExceeded, got %v", err)
	}
	if table.Len() != 10 {
		t.Errorf("failed batch changed the table length: %d", table.Len())
	}
	if _, ok := table.Lookup(10); ok {
		t.Error("key of the failed batch was inserted")
	}
}

func TestTableMmapAllocator(t *testing.T) {
	table := NewUint32Table(0, 0, memory.MmapAllocator{})
	defer table.Release()

	for i := 0; i < 10000; i++ {
		table.Probe(uint32(i), int32(i))
	}
	for i := 0; i < 10000; i++ {
		if v, ok := table.Lookup(uint32(i)); !ok || v != int32(i) {
			t.Fatalf("wrong lookup result for key=%d: %d %t", i, v, ok)
		}
	}
}

func TestBytesTable(t *testing.T) {
	table := NewBytesTable(0, 0, nil)
	keys := make([][]byte, 0, 1000)

	lookup := func(key []byte) (int32, bool) {
		return table.Lookup(xxhash.Sum64(key), func(v int32) bool {
			return bytes.Equal(keys[v], key)
		})
	}

	for i := 0; i < 1000; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		if _, ok := lookup(key); ok {
			t.Fatalf("key %q found before insertion", key)
		}
		if err := table.Reserve(1); err != nil {
			t.Fatal(err)
		}
		table.Insert(xxhash.Sum64(key), int32(len(keys)))
		keys = append(keys, key)
	}

	for i, key := range keys {
		if v, ok := lookup(key); !ok || v != int32(i) {
			t.Errorf("wrong lookup result for key %q: %d %t", key, v, ok)
		}
	}
}

func TestBytesTableHashCollisions(t *testing.T) {
	table := NewBytesTable(0, 0, nil)
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	// All keys share the same hash, only the equality function tells them
	// apart.
	const hash = 0xdeadbeef
	for i := range keys {
		table.Reserve(1)
		table.Insert(hash, int32(i))
	}

	for i, key := range keys {
		v, ok := table.Lookup(hash, func(v int32) bool { return bytes.Equal(keys[v], key) })
		if !ok || v != int32(i) {
			t.Errorf("wrong lookup result for key %q: %d %t", key, v, ok)
		}
	}

	if _, ok := table.Lookup(hash, func(int32) bool { return false }); ok {
		t.Error("lookup succeeded while no key was equal")
	}
}

func TestBytesTableInsertWithoutReserve(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("insert without reserved capacity did not panic")
		}
	}()
	NewBytesTable(0, 0, nil).Insert(1, 0)
}

type uint64Table interface {
	Reset()
	Len() int
	Probe(uint64, int32) (int32, bool, error)
}

type uint64Map map[uint64]int32

func (m uint64Map) Reset() {
	for k := range m {
		delete(m, k)
	}
}

func (m uint64Map) Len() int {
	return len(m)
}

func (m uint64Map) Probe(key uint64, value int32) (int32, bool, error) {
	v, ok := m[key]
	if !ok {
		m[key] = value
		return value, false, nil
	}
	return v, true, nil
}

func BenchmarkUint64Table(b *testing.B) {
	benchmarkUint64Table(b, func(size int) uint64Table { return NewUint64Table(size, 0.9, nil) })
}

func BenchmarkGoUint64Map(b *testing.B) {
	benchmarkUint64Table(b, func(size int) uint64Table { return make(uint64Map, size) })
}

func benchmarkUint64Table(b *testing.B, newTable func(size int) uint64Table) {
	for n := 100; n <= 1e6; n *= 10 {
		table := newTable(0)
		keys := generateUint64Keys(n)

		b.Run(fmt.Sprintf("N=%d", n), func(b *testing.B) {
			benchmarkUint64Loop(b, table, keys)
		})
	}
}

func benchmarkUint64Loop(b *testing.B, table uint64Table, keys []uint64) {
	b.SetBytes(8)
	start := time.Now()

	for i := 0; i < b.N; i++ {
		k := keys[i%len(keys)]
		table.Probe(k, int32(table.Len()))
	}

	seconds := time.Since(start).Seconds()
	b.ReportMetric(float64(b.N)/seconds, "probe/s")
}

func generateUint64Keys(n int) []uint64 {
	prng := rand.New(rand.NewSource(int64(n)))
	keys := make([]uint64, n)

	for i := range keys {
		var b [8]byte
		prng.Read(b[:])
		keys[i] = binary.LittleEndian.Uint64(b[:])
	}

	return keys
}
