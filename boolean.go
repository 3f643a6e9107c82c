package memo

import "fmt"

// BooleanTable is a memo table of boolean values.
//
// Booleans have only two possible values, the table is made of three slots
// holding the indexes of false, true and null.
type BooleanTable struct {
	index [2]int32 // false, true
	null  int32
	size  int32
}

// NewBooleanTable constructs a memo table of boolean values. Options are
// accepted for consistency with the other constructors, no memory is ever
// allocated by boolean tables.
func NewBooleanTable(options ...Option) *BooleanTable {
	_ = newConfig(options)
	t := new(BooleanTable)
	t.Reset()
	return t
}

func boolIndex(value bool) int {
	if value {
		return 1
	}
	return 0
}

func (t *BooleanTable) Reset() {
	*t = BooleanTable{index: [2]int32{noIndex, noIndex}, null: noIndex}
}

func (t *BooleanTable) Size() int { return int(t.size) }

func (t *BooleanTable) GetNull() (int32, bool) { return t.null, t.null != noIndex }

func (t *BooleanTable) GetOrInsertNull() (int32, bool) {
	if t.null != noIndex {
		return t.null, true
	}
	t.null = t.size
	t.size++
	return t.null, false
}

func (t *BooleanTable) Get(value bool) (int32, bool) {
	i := t.index[boolIndex(value)]
	return i, i != noIndex
}

func (t *BooleanTable) GetOrInsert(value bool) (int32, bool, error) {
	slot := &t.index[boolIndex(value)]
	if *slot != noIndex {
		return *slot, false, nil
	}
	*slot = t.size
	t.size++
	return *slot, true, nil
}

// Insert calls GetOrInsert for each value and writes the returned indexes to
// the corresponding positions of indexes.
func (t *BooleanTable) Insert(indexes []int32, values []bool) error {
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

// Value returns the value at the given index, false is returned as second
// value if the index is not assigned to true or false.
func (t *BooleanTable) Value(index int32) (value, ok bool) {
	switch {
	case index == noIndex:
		return false, false
	case index == t.index[0]:
		return false, true
	case index == t.index[1]:
		return true, true
	default:
		return false, false
	}
}

func (t *BooleanTable) WriteOut(dst []bool) error {
	return t.WriteOutSubset(0, dst)
}

func (t *BooleanTable) WriteOutSubset(start int, dst []bool) error {
	n, err := subsetLength(start, int(t.size), t.null, len(dst))
	if err != nil {
		return fmt.Errorf("writing boolean values: %w", err)
	}

	for value, index := range t.index {
		if i := int(index) - start; index != noIndex && i >= 0 && i < n {
			dst[i] = value == 1
		}
	}

	return nil
}
