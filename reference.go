package memo

import "fmt"

// MapTable is a memo table backed by a Go map.
//
// The table is a baseline for the specialized tables of this package: it is
// simpler to verify and serves as reference in tests and benchmarks. Values
// are mapped to comparable keys by the key function, which determines the
// equality of values; for example, floats should be keyed by their bit
// pattern, and byte slices by their conversion to a string.
type MapTable[T any, K comparable] struct {
	key    func(T) K
	clone  func(T) T
	index  map[K]int32
	values []T
	null   int32
}

// NewMapTable constructs a map-based memo table. The clone function is called
// when a value is inserted, it may be nil if values do not need to be copied.
func NewMapTable[T any, K comparable](key func(T) K, clone func(T) T) *MapTable[T, K] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &MapTable[T, K]{
		key:   key,
		clone: clone,
		index: make(map[K]int32),
		null:  noIndex,
	}
}

func (t *MapTable[T, K]) Reset() {
	clear(t.index)
	t.values = t.values[:0]
	t.null = noIndex
}

func (t *MapTable[T, K]) Size() int { return len(t.values) }

func (t *MapTable[T, K]) GetNull() (int32, bool) { return t.null, t.null != noIndex }

func (t *MapTable[T, K]) GetOrInsertNull() (int32, bool) {
	if t.null != noIndex {
		return t.null, true
	}
	var zero T
	t.null = int32(len(t.values))
	t.values = append(t.values, zero)
	return t.null, false
}

func (t *MapTable[T, K]) Get(value T) (int32, bool) {
	index, ok := t.index[t.key(value)]
	if !ok {
		return noIndex, false
	}
	return index, true
}

func (t *MapTable[T, K]) GetOrInsert(value T) (int32, bool, error) {
	k := t.key(value)
	if index, ok := t.index[k]; ok {
		return index, false, nil
	}
	index := int32(len(t.values))
	t.index[k] = index
	t.values = append(t.values, t.clone(value))
	return index, true, nil
}

// Value returns the value at the given index, false is returned if the index
// is out of range or is the index of null.
func (t *MapTable[T, K]) Value(index int32) (value T, ok bool) {
	if index < 0 || int(index) >= len(t.values) || index == t.null {
		return value, false
	}
	return t.values[index], true
}

func (t *MapTable[T, K]) WriteOut(dst []T) error {
	return t.WriteOutSubset(0, dst)
}

func (t *MapTable[T, K]) WriteOutSubset(start int, dst []T) error {
	n, err := subsetLength(start, len(t.values), t.null, len(dst))
	if err != nil {
		return fmt.Errorf("writing values of map table: %w", err)
	}
	writeOut(dst, t.values, start, n, t.null)
	return nil
}

// BytesKey is a key function for map tables of byte slices.
func BytesKey(b []byte) string { return string(b) }

// CloneBytes is a clone function for map tables of byte slices.
func CloneBytes(b []byte) []byte { return append([]byte{}, b...) }
