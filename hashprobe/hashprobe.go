// Package hashprobe implements the open addressing hash tables used by memo
// tables to map keys to dictionary indexes.
//
// Tables use linear probing over a power of two number of slots. The occupancy
// of slots is tracked in a bitmap, keys and values are stored in separate
// arrays, and all three live in a single block of memory obtained from a
// memory.Allocator. Entries are never removed individually; tables only grow
// until they are reset.
package hashprobe

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/rand"
	"unsafe"

	"github.com/segmentio/memo/hashprobe/wyhash"
	"github.com/segmentio/memo/internal/debug"
	"github.com/segmentio/memo/internal/unsafecast"
	"github.com/segmentio/memo/memory"
)

const (
	// DefaultMaxLoad is the load factor used when the value passed to a table
	// constructor is not within (0, 1).
	DefaultMaxLoad = 0.75

	minCapacity = 64
)

var errMisaligned = errors.New("allocator returned memory which is not aligned on 8 bytes")

// Key is the constraint satisfied by the types of fixed-width keys that can be
// stored in a Table.
type Key interface {
	uint32 | uint64 | [16]byte
}

func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << (64 - bits.LeadingZeros64(uint64(n-1)))
}

func normalizeCapacity(cap int) int {
	if cap < minCapacity {
		cap = minCapacity
	}
	return nextPowerOf2(cap)
}

func normalizeMaxLoad(maxLoad float64) float64 {
	if !(maxLoad > 0 && maxLoad < 1) {
		maxLoad = DefaultMaxLoad
	}
	return maxLoad
}

// maxLenOf returns the number of entries that a table of the given capacity
// can hold. At least one slot always remains free so probing terminates.
func maxLenOf(cap int, maxLoad float64) int {
	maxLen := int(math.Ceil(maxLoad * float64(cap)))
	if maxLen >= cap {
		maxLen = cap - 1
	}
	return maxLen
}

// capacityFor returns the smallest capacity greater or equal to cap which can
// hold n entries.
func capacityFor(n, cap int, maxLoad float64) int {
	for maxLenOf(cap, maxLoad) < n {
		cap *= 2
	}
	return cap
}

func newSeed() uintptr { return uintptr(rand.Uint64()) }

func allocatorOrDefault(alloc memory.Allocator) memory.Allocator {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	return alloc
}

// Table is a hash table of fixed-width keys to int32 values.
type Table[K Key] struct {
	len     int
	cap     int
	maxLen  int
	maxLoad float64
	seed    uintptr
	hash    func(K, uintptr) uintptr
	multi   func([]uintptr, []K, uintptr)
	alloc   memory.Allocator
	memory  []byte
	flags   []uint64
	keys    []K
	values  []int32
}

// NewUint32Table constructs a table of 32 bits keys.
//
// The cap argument is a hint of the number of entries that the table will hold,
// maxLoad is the load factor that triggers growing the table. Memory is only
// allocated from alloc when the first entry is inserted.
func NewUint32Table(cap int, maxLoad float64, alloc memory.Allocator) *Table[uint32] {
	return newTable(cap, maxLoad, alloc, wyhash.Hash32, wyhash.MultiHash32)
}

// NewUint64Table constructs a table of 64 bits keys.
func NewUint64Table(cap int, maxLoad float64, alloc memory.Allocator) *Table[uint64] {
	return newTable(cap, maxLoad, alloc, wyhash.Hash64, wyhash.MultiHash64)
}

// NewUint128Table constructs a table of 128 bits keys.
func NewUint128Table(cap int, maxLoad float64, alloc memory.Allocator) *Table[[16]byte] {
	return newTable(cap, maxLoad, alloc, wyhash.Hash128, wyhash.MultiHash128)
}

func newTable[K Key](cap int, maxLoad float64, alloc memory.Allocator, hash func(K, uintptr) uintptr, multi func([]uintptr, []K, uintptr)) *Table[K] {
	maxLoad = normalizeMaxLoad(maxLoad)
	return &Table[K]{
		cap:     capacityFor(cap, normalizeCapacity(cap), maxLoad),
		maxLoad: maxLoad,
		seed:    newSeed(),
		hash:    hash,
		multi:   multi,
		alloc:   allocatorOrDefault(alloc),
	}
}

// Len returns the number of entries in the table.
func (t *Table[K]) Len() int { return t.len }

// Cap returns the number of slots in the table.
func (t *Table[K]) Cap() int { return t.cap }

// Lookup returns the value associated with key. The method never mutates the
// table.
func (t *Table[K]) Lookup(key K) (int32, bool) {
	if t.len == 0 {
		return 0, false
	}

	mod := uintptr(t.cap) - 1

	for hash := t.hash(key, t.seed) & mod; ; hash = (hash + 1) & mod {
		index, shift := hash/64, hash%64

		if (t.flags[index] & (1 << shift)) == 0 {
			return 0, false
		}
		if t.keys[hash] == key {
			return t.values[hash], true
		}
	}
}

// Probe looks up key in the table and returns the associated value and true if
// it was found. Otherwise, the key is inserted with the given value and the
// method returns value and false.
//
// The only error condition is a failure to allocate memory to grow the table,
// in which case the table is left unchanged.
func (t *Table[K]) Probe(key K, value int32) (int32, bool, error) {
	if t.len >= t.maxLen {
		if v, ok := t.Lookup(key); ok {
			return v, true, nil
		}
		if err := t.grow(t.len + 1); err != nil {
			return 0, false, err
		}
	}

	mod := uintptr(t.cap) - 1

	for hash := t.hash(key, t.seed) & mod; ; hash = (hash + 1) & mod {
		index, shift := hash/64, hash%64

		if (t.flags[index] & (1 << shift)) == 0 {
			t.flags[index] |= 1 << shift
			t.keys[hash] = key
			t.values[hash] = value
			t.len++
			return value, false, nil
		}

		if t.keys[hash] == key {
			return t.values[hash], true, nil
		}
	}
}

// MultiProbe is the batch version of Probe. Keys which are not in the table
// are inserted with consecutive values starting at next, in the order they
// appear in keys. The value associated with each key is written to the
// corresponding position of values, which must be at least as long as keys.
//
// Room for all the keys is reserved before any is inserted: if the table
// cannot grow, an error is returned and the table is left unchanged.
func (t *Table[K]) MultiProbe(keys []K, values []int32, next int32) error {
	if len(keys) == 0 {
		return nil
	}
	_ = values[:len(keys)]

	if err := t.Reserve(len(keys)); err != nil {
		return err
	}

	var hashes [512]uintptr

	for i := 0; i < len(keys); {
		j := min(i+len(hashes), len(keys))
		n := j - i

		t.multi(hashes[:n:n], keys[i:j:j], t.seed)
		next = t.multiProbe(values[i:j:j], keys[i:j:j], hashes[:n:n], next)

		i = j
	}

	return nil
}

func (t *Table[K]) multiProbe(values []int32, keys []K, hashes []uintptr, next int32) int32 {
	mod := uintptr(t.cap) - 1

	for i, hash := range hashes {
		for hash &= mod; ; hash = (hash + 1) & mod {
			index, shift := hash/64, hash%64

			if (t.flags[index] & (1 << shift)) == 0 {
				t.flags[index] |= 1 << shift
				t.keys[hash] = keys[i]
				t.values[hash] = next
				values[i] = next
				next++
				t.len++
				break
			}

			if t.keys[hash] == keys[i] {
				values[i] = t.values[hash]
				break
			}
		}
	}

	return next
}

// Reserve ensures that n more entries can be inserted without growing the
// table.
func (t *Table[K]) Reserve(n int) error {
	if t.memory != nil && t.len+n <= t.maxLen {
		return nil
	}
	return t.grow(t.len + n)
}

func (t *Table[K]) grow(totalValues int) error {
	cap := t.cap
	if t.memory != nil {
		cap *= 2
	}
	cap = capacityFor(totalValues, cap, t.maxLoad)

	var zero K
	flagsSize := 8 * (cap / 64)
	keysSize := int(unsafe.Sizeof(zero)) * cap
	valuesSize := 4 * cap

	b, err := t.alloc.Allocate(flagsSize + keysSize + valuesSize)
	if err != nil {
		return fmt.Errorf("growing hash table from %d to %d slots: %w", t.cap, cap, err)
	}
	if !unsafecast.Aligned(b, 8) {
		t.alloc.Free(b)
		return fmt.Errorf("growing hash table from %d to %d slots: %w", t.cap, cap, errMisaligned)
	}

	tmp := Table[K]{
		len:     t.len,
		cap:     cap,
		maxLen:  maxLenOf(cap, t.maxLoad),
		maxLoad: t.maxLoad,
		seed:    t.seed,
		hash:    t.hash,
		multi:   t.multi,
		alloc:   t.alloc,
		memory:  b,
		flags:   unsafecast.Slice[uint64](b[:flagsSize:flagsSize]),
		keys:    unsafecast.Slice[K](b[flagsSize : flagsSize+keysSize : flagsSize+keysSize]),
		values:  unsafecast.Slice[int32](b[flagsSize+keysSize:]),
	}
	// Memory may be recycled by the allocator, only the flags need to be
	// cleared since they determine which keys and values are valid.
	clear(tmp.flags)

	t.Range(func(key K, value int32) bool {
		tmp.insert(key, value)
		return true
	})

	debug.Log("msg", "hash table grow", "from", t.cap, "to", cap, "len", t.len)

	if t.memory != nil {
		t.alloc.Free(t.memory)
	}
	*t = tmp
	return nil
}

func (t *Table[K]) insert(key K, value int32) {
	mod := uintptr(t.cap) - 1

	for hash := t.hash(key, t.seed) & mod; ; hash = (hash + 1) & mod {
		index, shift := hash/64, hash%64

		if (t.flags[index] & (1 << shift)) == 0 {
			t.flags[index] |= 1 << shift
			t.keys[hash] = key
			t.values[hash] = value
			return
		}
	}
}

// Range calls fn for each entry of the table, in slot order.
func (t *Table[K]) Range(fn func(key K, value int32) bool) {
	for i, f := range t.flags {
		for f != 0 {
			j := 64*i + bits.TrailingZeros64(f)
			f &= f - 1
			if !fn(t.keys[j], t.values[j]) {
				return
			}
		}
	}
}

// Reset removes all entries from the table, retaining its memory.
func (t *Table[K]) Reset() {
	clear(t.flags)
	t.len = 0
}

// Release removes all entries from the table and returns its memory to the
// allocator.
func (t *Table[K]) Release() {
	if t.memory != nil {
		t.alloc.Free(t.memory)
	}
	t.len = 0
	t.maxLen = 0
	t.memory = nil
	t.flags = nil
	t.keys = nil
	t.values = nil
}
