package memo

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/segmentio/memo/hashprobe"
)

// table is the implementation of memo tables for fixed-width values, shared by
// all the exported types through embedding.
//
// The hash engine maps keys to indexes, while values are retained in index
// order so they can be written out without walking the hash table. The slot of
// null in the values slice holds the zero-value.
type table[T any, K hashprobe.Key] struct {
	class  *class[T, K]
	probe  *hashprobe.Table[K]
	values []T
	null   int32
}

func (t *table[T, K]) init(c *class[T, K], options []Option) {
	config := newConfig(options)
	t.class = c
	t.probe = c.newTable(config.Capacity, config.MaxLoad, config.Allocator)
	t.values = make([]T, 0, config.Capacity)
	t.null = noIndex
}

func (t *table[T, K]) Reset() {
	t.probe.Reset()
	t.values = t.values[:0]
	t.null = noIndex
}

// Release resets the table and returns the memory of its hash table to the
// allocator.
func (t *table[T, K]) Release() {
	t.probe.Release()
	t.values = nil
	t.null = noIndex
}

func (t *table[T, K]) Size() int { return len(t.values) }

func (t *table[T, K]) GetNull() (int32, bool) { return t.null, t.null != noIndex }

func (t *table[T, K]) GetOrInsertNull() (int32, bool) {
	if t.null != noIndex {
		return t.null, true
	}
	var zero T
	t.null = int32(len(t.values))
	t.values = append(t.values, zero)
	return t.null, false
}

func (t *table[T, K]) Get(value T) (int32, bool) {
	if index, ok := t.probe.Lookup(t.class.key(value)); ok {
		return index, true
	}
	return noIndex, false
}

func (t *table[T, K]) GetOrInsert(value T) (int32, bool, error) {
	index, found, err := t.probe.Probe(t.class.key(value), int32(len(t.values)))
	if err != nil {
		return noIndex, false, fmt.Errorf("inserting %s value: %w", t.class.name, allocationError(err))
	}
	if !found {
		t.values = append(t.values, value)
	}
	return index, !found, nil
}

// Insert calls GetOrInsert for each value and writes the returned indexes to
// the corresponding positions of indexes, which must be at least as long as
// values. On error, the indexes of the values that precede the one which
// failed were written.
//
// Values are hashed and inserted in batches, a batch which cannot reserve
// room in the hash table is inserted one value at a time so only the value
// which could not be inserted fails.
func (t *table[T, K]) Insert(indexes []int32, values []T) error {
	_ = indexes[:len(values)]

	var keys [512]K

	for i := 0; i < len(values); {
		j := min(i+len(keys), len(values))
		k := keys[:j-i]

		for n := range k {
			k[n] = t.class.key(values[i+n])
		}

		if err := t.probe.MultiProbe(k, indexes[i:j], int32(len(t.values))); err != nil {
			for n, value := range values[i:j] {
				index, _, err := t.GetOrInsert(value)
				if err != nil {
					return fmt.Errorf("inserting value %d/%d: %w", i+n, len(values), err)
				}
				indexes[i+n] = index
			}
		} else {
			for n, index := range indexes[i:j] {
				if int(index) == len(t.values) {
					t.values = append(t.values, values[i+n])
				}
			}
		}

		i = j
	}

	return nil
}

// Value returns the value at the given index, false is returned if the index
// is out of range or is the index of null.
func (t *table[T, K]) Value(index int32) (value T, ok bool) {
	if index < 0 || int(index) >= len(t.values) || index == t.null {
		return value, false
	}
	return t.values[index], true
}

func (t *table[T, K]) WriteOut(dst []T) error {
	return t.WriteOutSubset(0, dst)
}

func (t *table[T, K]) WriteOutSubset(start int, dst []T) error {
	n, err := subsetLength(start, len(t.values), t.null, len(dst))
	if err != nil {
		return err
	}
	writeOut(dst, t.values, start, n, t.null)
	return nil
}

// Int8Table is a memo table of int8 values.
type Int8Table struct{ table[int8, uint32] }

// NewInt8Table constructs a memo table of int8 values. The function panics if
// the options describe an invalid configuration.
func NewInt8Table(options ...Option) *Int8Table {
	t := new(Int8Table)
	t.init(&int8Class, options)
	return t
}

// Int16Table is a memo table of int16 values.
type Int16Table struct{ table[int16, uint32] }

// NewInt16Table constructs a memo table of int16 values.
func NewInt16Table(options ...Option) *Int16Table {
	t := new(Int16Table)
	t.init(&int16Class, options)
	return t
}

// Int32Table is a memo table of int32 values.
type Int32Table struct{ table[int32, uint32] }

// NewInt32Table constructs a memo table of int32 values.
func NewInt32Table(options ...Option) *Int32Table {
	t := new(Int32Table)
	t.init(&int32Class, options)
	return t
}

// Int64Table is a memo table of int64 values.
type Int64Table struct{ table[int64, uint64] }

// NewInt64Table constructs a memo table of int64 values.
func NewInt64Table(options ...Option) *Int64Table {
	t := new(Int64Table)
	t.init(&int64Class, options)
	return t
}

// Uint8Table is a memo table of uint8 values.
type Uint8Table struct{ table[uint8, uint32] }

// NewUint8Table constructs a memo table of uint8 values.
func NewUint8Table(options ...Option) *Uint8Table {
	t := new(Uint8Table)
	t.init(&uint8Class, options)
	return t
}

// Uint16Table is a memo table of uint16 values.
type Uint16Table struct{ table[uint16, uint32] }

// NewUint16Table constructs a memo table of uint16 values.
func NewUint16Table(options ...Option) *Uint16Table {
	t := new(Uint16Table)
	t.init(&uint16Class, options)
	return t
}

// Uint32Table is a memo table of uint32 values.
type Uint32Table struct{ table[uint32, uint32] }

// NewUint32Table constructs a memo table of uint32 values.
func NewUint32Table(options ...Option) *Uint32Table {
	t := new(Uint32Table)
	t.init(&uint32Class, options)
	return t
}

// Uint64Table is a memo table of uint64 values.
type Uint64Table struct{ table[uint64, uint64] }

// NewUint64Table constructs a memo table of uint64 values.
func NewUint64Table(options ...Option) *Uint64Table {
	t := new(Uint64Table)
	t.init(&uint64Class, options)
	return t
}

// Float32Table is a memo table of float32 values, compared by bit pattern.
type Float32Table struct{ table[float32, uint32] }

// NewFloat32Table constructs a memo table of float32 values.
func NewFloat32Table(options ...Option) *Float32Table {
	t := new(Float32Table)
	t.init(&float32Class, options)
	return t
}

// Float64Table is a memo table of float64 values, compared by bit pattern.
type Float64Table struct{ table[float64, uint64] }

// NewFloat64Table constructs a memo table of float64 values.
func NewFloat64Table(options ...Option) *Float64Table {
	t := new(Float64Table)
	t.init(&float64Class, options)
	return t
}

// UUIDTable is a memo table of UUID values, backed by a hash table of 128 bits
// keys.
type UUIDTable struct{ table[uuid.UUID, [16]byte] }

// NewUUIDTable constructs a memo table of UUID values.
func NewUUIDTable(options ...Option) *UUIDTable {
	t := new(UUIDTable)
	t.init(&uuidClass, options)
	return t
}

var (
	_ Table[int8]      = (*Int8Table)(nil)
	_ Table[int16]     = (*Int16Table)(nil)
	_ Table[int32]     = (*Int32Table)(nil)
	_ Table[int64]     = (*Int64Table)(nil)
	_ Table[uint8]     = (*Uint8Table)(nil)
	_ Table[uint16]    = (*Uint16Table)(nil)
	_ Table[uint32]    = (*Uint32Table)(nil)
	_ Table[uint64]    = (*Uint64Table)(nil)
	_ Table[float32]   = (*Float32Table)(nil)
	_ Table[float64]   = (*Float64Table)(nil)
	_ Table[uuid.UUID] = (*UUIDTable)(nil)
	_ Table[bool]      = (*BooleanTable)(nil)
	_ Table[[]byte]    = (*ByteArrayTable)(nil)
	_ Table[[]byte]    = (*FixedLenByteArrayTable)(nil)
)
