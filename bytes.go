package memo

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/segmentio/memo/arena"
	"github.com/segmentio/memo/hashprobe"
)

// bytesTable is the implementation of memo tables for byte array values.
//
// Values are copied to an arena the first time they are inserted, the hash
// engine only records the hash of values and their index. refs holds the
// location of values in the arena, in index order.
type bytesTable struct {
	arena *arena.Arena
	probe *hashprobe.BytesTable
	refs  []arena.Ref
	null  int32
}

func (t *bytesTable) init(options []Option) {
	config := newConfig(options)
	t.arena = arena.New(config.Allocator)
	t.probe = hashprobe.NewBytesTable(config.Capacity, config.MaxLoad, config.Allocator)
	t.refs = make([]arena.Ref, 0, config.Capacity)
	t.null = noIndex
}

func (t *bytesTable) Reset() {
	t.arena.Reset()
	t.probe.Reset()
	t.refs = t.refs[:0]
	t.null = noIndex
}

// Release resets the table and returns all its memory to the allocator.
func (t *bytesTable) Release() {
	t.arena.Reset()
	t.probe.Release()
	t.refs = nil
	t.null = noIndex
}

func (t *bytesTable) Size() int { return len(t.refs) }

func (t *bytesTable) GetNull() (int32, bool) { return t.null, t.null != noIndex }

func (t *bytesTable) GetOrInsertNull() (int32, bool) {
	if t.null != noIndex {
		return t.null, true
	}
	t.null = int32(len(t.refs))
	t.refs = append(t.refs, arena.Ref{})
	return t.null, false
}

func (t *bytesTable) lookup(hash uint64, value []byte) (int32, bool) {
	return t.probe.Lookup(hash, func(index int32) bool {
		return index != t.null && bytes.Equal(t.arena.Bytes(t.refs[index]), value)
	})
}

func (t *bytesTable) get(value []byte) (int32, bool) {
	if index, ok := t.lookup(xxhash.Sum64(value), value); ok {
		return index, true
	}
	return noIndex, false
}

func (t *bytesTable) getOrInsert(value []byte) (int32, bool, error) {
	hash := xxhash.Sum64(value)

	if index, ok := t.lookup(hash, value); ok {
		return index, false, nil
	}

	// Both the hash table and the arena may need to grow, make sure they both
	// have room for the value before modifying either.
	if err := t.probe.Reserve(1); err != nil {
		return noIndex, false, allocationError(err)
	}
	ref, err := t.arena.Append(value)
	if err != nil {
		return noIndex, false, allocationError(err)
	}

	index := int32(len(t.refs))
	t.refs = append(t.refs, ref)
	t.probe.Insert(hash, index)
	return index, true, nil
}

func (t *bytesTable) value(index int32) ([]byte, bool) {
	if index < 0 || int(index) >= len(t.refs) || index == t.null {
		return nil, false
	}
	return t.arena.Bytes(t.refs[index]), true
}

func (t *bytesTable) writeOutSubset(start int, dst [][]byte) error {
	n, err := subsetLength(start, len(t.refs), t.null, len(dst))
	if err != nil {
		return err
	}
	for i, ref := range t.refs[start : start+n] {
		if int32(start+i) != t.null {
			dst[i] = t.arena.Bytes(ref)
		}
	}
	return nil
}

func (t *bytesTable) checkStart(start int) error {
	if start < 0 || start > len(t.refs) {
		return fmt.Errorf("%w: start index %d out of bounds [0:%d]", ErrRange, start, len(t.refs))
	}
	return nil
}

// ByteArrayTable is a memo table of variable length byte arrays.
//
// Values passed to GetOrInsert are copied, the table does not retain the
// slices it receives. Slices returned by the table are views of its internal
// storage which remain valid until the table is reset, they must not be
// modified.
type ByteArrayTable struct{ bytesTable }

// NewByteArrayTable constructs a memo table of byte arrays. The function
// panics if the options describe an invalid configuration.
func NewByteArrayTable(options ...Option) *ByteArrayTable {
	t := new(ByteArrayTable)
	t.init(options)
	return t
}

func (t *ByteArrayTable) Get(value []byte) (int32, bool) {
	return t.get(value)
}

func (t *ByteArrayTable) GetOrInsert(value []byte) (int32, bool, error) {
	index, inserted, err := t.getOrInsert(value)
	if err != nil {
		err = fmt.Errorf("inserting byte array of length %d: %w", len(value), err)
	}
	return index, inserted, err
}

// Insert calls GetOrInsert for each value and writes the returned indexes to
// the corresponding positions of indexes.
func (t *ByteArrayTable) Insert(indexes []int32, values [][]byte) error {
	return insertBytes(t, indexes, values)
}

// Value returns the value at the given index, false is returned if the index
// is out of range or is the index of null.
func (t *ByteArrayTable) Value(index int32) ([]byte, bool) {
	return t.value(index)
}

func (t *ByteArrayTable) WriteOut(dst [][]byte) error {
	return t.writeOutSubset(0, dst)
}

func (t *ByteArrayTable) WriteOutSubset(start int, dst [][]byte) error {
	return t.writeOutSubset(start, dst)
}

// ValuesSize returns the total length of values held in the table.
func (t *ByteArrayTable) ValuesSize() int { return t.arena.Len() }

// ValuesSizeFrom returns the total length of values with an index greater or
// equal to start.
func (t *ByteArrayTable) ValuesSizeFrom(start int) int {
	size := 0
	if start >= 0 && start <= len(t.refs) {
		for _, ref := range t.refs[start:] {
			size += int(ref.Length)
		}
	}
	return size
}

// CopyOffsets writes to dst the offsets of values with an index greater or
// equal to start, as if they were concatenated in index order. The first
// offset is zero and the last is the total length of values, dst must hold
// Size()-start+1 elements. Null occupies an empty range.
func (t *ByteArrayTable) CopyOffsets(start int, dst []int32) error {
	if err := t.checkStart(start); err != nil {
		return err
	}
	refs := t.refs[start:]
	if len(dst) < len(refs)+1 {
		return fmt.Errorf("%w: writing %d offsets to a buffer of length %d", ErrRange, len(refs)+1, len(dst))
	}
	offset := int32(0)
	for i, ref := range refs {
		dst[i] = offset
		offset += int32(ref.Length)
	}
	dst[len(refs)] = offset
	return nil
}

// CopyValues writes to dst the concatenation of values with an index greater
// or equal to start, dst must hold ValuesSizeFrom(start) bytes.
func (t *ByteArrayTable) CopyValues(start int, dst []byte) error {
	if err := t.checkStart(start); err != nil {
		return err
	}
	if size := t.ValuesSizeFrom(start); len(dst) < size {
		return fmt.Errorf("%w: writing %d bytes to a buffer of length %d", ErrRange, size, len(dst))
	}
	offset := 0
	for _, ref := range t.refs[start:] {
		offset += copy(dst[offset:], t.arena.Bytes(ref))
	}
	return nil
}

// VisitValues calls fn with each non-null value with an index greater or
// equal to start, in index order.
func (t *ByteArrayTable) VisitValues(start int, fn func(index int32, value []byte)) {
	if start < 0 {
		start = 0
	}
	for i := start; i < len(t.refs); i++ {
		if int32(i) != t.null {
			fn(int32(i), t.arena.Bytes(t.refs[i]))
		}
	}
}

// FixedLenByteArrayTable is a memo table of byte arrays which all have the
// same length.
//
// Values of a different length cannot be held by the table: Get never finds
// them and GetOrInsert rejects them with ErrTypeMismatch.
type FixedLenByteArrayTable struct {
	bytesTable
	size int
}

// NewFixedLenByteArrayTable constructs a memo table of byte arrays of the
// given size. The function panics if size is negative or if the options
// describe an invalid configuration.
func NewFixedLenByteArrayTable(size int, options ...Option) *FixedLenByteArrayTable {
	if size < 0 {
		panic(fmt.Sprintf("invalid fixed length byte array size: %d", size))
	}
	t := &FixedLenByteArrayTable{size: size}
	t.init(options)
	return t
}

// ByteSize returns the length of values held in the table.
func (t *FixedLenByteArrayTable) ByteSize() int { return t.size }

func (t *FixedLenByteArrayTable) Get(value []byte) (int32, bool) {
	if len(value) != t.size {
		return noIndex, false
	}
	return t.get(value)
}

func (t *FixedLenByteArrayTable) GetOrInsert(value []byte) (int32, bool, error) {
	if len(value) != t.size {
		return noIndex, false, fmt.Errorf("%w: inserting value of length %d in a table of fixed length byte arrays of size %d", ErrTypeMismatch, len(value), t.size)
	}
	index, inserted, err := t.getOrInsert(value)
	if err != nil {
		err = fmt.Errorf("inserting fixed length byte array of size %d: %w", t.size, err)
	}
	return index, inserted, err
}

// Insert calls GetOrInsert for each value and writes the returned indexes to
// the corresponding positions of indexes.
func (t *FixedLenByteArrayTable) Insert(indexes []int32, values [][]byte) error {
	return insertBytes(t, indexes, values)
}

// Value returns the value at the given index, false is returned if the index
// is out of range or is the index of null.
func (t *FixedLenByteArrayTable) Value(index int32) ([]byte, bool) {
	return t.value(index)
}

func (t *FixedLenByteArrayTable) WriteOut(dst [][]byte) error {
	return t.writeOutSubset(0, dst)
}

func (t *FixedLenByteArrayTable) WriteOutSubset(start int, dst [][]byte) error {
	return t.writeOutSubset(start, dst)
}

// CopyValues writes to dst the values with an index greater or equal to start,
// value i is written at dst[(i-start)*ByteSize():]. The bytes at the position
// of null are zeroed. dst must hold (Size()-start)*ByteSize() bytes.
func (t *FixedLenByteArrayTable) CopyValues(start int, dst []byte) error {
	if err := t.checkStart(start); err != nil {
		return err
	}
	refs := t.refs[start:]
	if size := len(refs) * t.size; len(dst) < size {
		return fmt.Errorf("%w: writing %d bytes to a buffer of length %d", ErrRange, size, len(dst))
	}
	for i, ref := range refs {
		b := dst[i*t.size : (i+1)*t.size]
		if int32(start+i) == t.null {
			clear(b)
		} else {
			copy(b, t.arena.Bytes(ref))
		}
	}
	return nil
}

func insertBytes(t interface {
	GetOrInsert([]byte) (int32, bool, error)
}, indexes []int32, values [][]byte) error {
	_ = indexes[:len(values)]

	for i, value := range values {
		index, _, err := t.GetOrInsert(value)
		if err != nil {
			return fmt.Errorf("inserting value %d/%d: %w", i, len(values), err)
		}
		indexes[i] = index
	}

	return nil
}
