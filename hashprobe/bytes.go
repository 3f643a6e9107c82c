package hashprobe

import (
	"fmt"
	"math/bits"

	"github.com/segmentio/memo/hashprobe/wyhash"
	"github.com/segmentio/memo/internal/debug"
	"github.com/segmentio/memo/internal/unsafecast"
	"github.com/segmentio/memo/memory"
)

// BytesTable is a hash table for variable length keys.
//
// The table does not store keys, only their 64 bits hash and the value they are
// associated with. Comparing the content of keys is delegated to the callers,
// which receive the value of slots whose hash matches the probe and decide
// whether the key they hold is equal to the one being searched. This lets the
// caller own the storage of keys (for example in an arena), and only copy them
// when a new entry is created.
type BytesTable struct {
	len     int
	cap     int
	maxLen  int
	maxLoad float64
	seed    uintptr
	alloc   memory.Allocator
	memory  []byte
	flags   []uint64
	hashes  []uint64
	values  []int32
}

// NewBytesTable constructs a table for variable length keys.
func NewBytesTable(cap int, maxLoad float64, alloc memory.Allocator) *BytesTable {
	maxLoad = normalizeMaxLoad(maxLoad)
	return &BytesTable{
		cap:     capacityFor(cap, normalizeCapacity(cap), maxLoad),
		maxLoad: maxLoad,
		seed:    newSeed(),
		alloc:   allocatorOrDefault(alloc),
	}
}

// Len returns the number of entries in the table.
func (t *BytesTable) Len() int { return t.len }

// Cap returns the number of slots in the table.
func (t *BytesTable) Cap() int { return t.cap }

func (t *BytesTable) position(hash uint64) uintptr {
	return wyhash.Hash64(hash, t.seed) & (uintptr(t.cap) - 1)
}

// Lookup searches for an entry with the given hash for which eq returns true,
// and returns its value.
//
// The eq function is called with the values of entries that share the same
// hash, it must not mutate the table.
func (t *BytesTable) Lookup(hash uint64, eq func(value int32) bool) (int32, bool) {
	if t.len == 0 {
		return 0, false
	}

	mod := uintptr(t.cap) - 1

	for i := t.position(hash); ; i = (i + 1) & mod {
		index, shift := i/64, i%64

		if (t.flags[index] & (1 << shift)) == 0 {
			return 0, false
		}
		if t.hashes[i] == hash && eq(t.values[i]) {
			return t.values[i], true
		}
	}
}

// Reserve ensures that n more entries can be inserted without growing the
// table. On error, the table is left unchanged.
func (t *BytesTable) Reserve(n int) error {
	if t.memory != nil && t.len+n <= t.maxLen {
		return nil
	}
	return t.grow(t.len + n)
}

// Insert adds an entry to the table. The method must be called after Reserve
// guaranteed that there was room for the entry, and after Lookup reported that
// no equal key existed.
func (t *BytesTable) Insert(hash uint64, value int32) {
	if t.len >= t.maxLen {
		panic("hashprobe: insert into a table with no reserved capacity")
	}
	t.insert(hash, value)
	t.len++
}

func (t *BytesTable) insert(hash uint64, value int32) {
	mod := uintptr(t.cap) - 1

	for i := t.position(hash); ; i = (i + 1) & mod {
		index, shift := i/64, i%64

		if (t.flags[index] & (1 << shift)) == 0 {
			t.flags[index] |= 1 << shift
			t.hashes[i] = hash
			t.values[i] = value
			return
		}
	}
}

func (t *BytesTable) grow(totalValues int) error {
	cap := t.cap
	if t.memory != nil {
		cap *= 2
	}
	cap = capacityFor(totalValues, cap, t.maxLoad)

	flagsSize := 8 * (cap / 64)
	hashesSize := 8 * cap
	valuesSize := 4 * cap

	b, err := t.alloc.Allocate(flagsSize + hashesSize + valuesSize)
	if err != nil {
		return fmt.Errorf("growing hash table from %d to %d slots: %w", t.cap, cap, err)
	}
	if !unsafecast.Aligned(b, 8) {
		t.alloc.Free(b)
		return fmt.Errorf("growing hash table from %d to %d slots: %w", t.cap, cap, errMisaligned)
	}

	tmp := BytesTable{
		len:     t.len,
		cap:     cap,
		maxLen:  maxLenOf(cap, t.maxLoad),
		maxLoad: t.maxLoad,
		seed:    t.seed,
		alloc:   t.alloc,
		memory:  b,
		flags:   unsafecast.Slice[uint64](b[:flagsSize:flagsSize]),
		hashes:  unsafecast.Slice[uint64](b[flagsSize : flagsSize+hashesSize : flagsSize+hashesSize]),
		values:  unsafecast.Slice[int32](b[flagsSize+hashesSize:]),
	}
	clear(tmp.flags)

	for i, f := range t.flags {
		for f != 0 {
			j := 64*i + bits.TrailingZeros64(f)
			f &= f - 1
			tmp.insert(t.hashes[j], t.values[j])
		}
	}

	debug.Log("msg", "bytes hash table grow", "from", t.cap, "to", cap, "len", t.len)

	if t.memory != nil {
		t.alloc.Free(t.memory)
	}
	*t = tmp
	return nil
}

// Reset removes all entries from the table, retaining its memory.
func (t *BytesTable) Reset() {
	clear(t.flags)
	t.len = 0
}

// Release removes all entries from the table and returns its memory to the
// allocator.
func (t *BytesTable) Release() {
	if t.memory != nil {
		t.alloc.Free(t.memory)
	}
	t.len = 0
	t.maxLen = 0
	t.memory = nil
	t.flags = nil
	t.hashes = nil
	t.values = nil
}
