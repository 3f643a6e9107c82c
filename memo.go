// Package memo implements memo tables: deduplicating value to index structures
// used when dictionary encoding columns of typed values.
//
// A memo table assigns each distinct value it is given a dense int32 index, in
// the order in which values first appear. Encoders feed column values one at a
// time to obtain the index stream of a page, then export the distinct values in
// index order to produce the dictionary.
//
// Null is tracked as a distinct entry sharing the same index space: the first
// null inserted receives the next index, interleaved with the other values.
//
// Tables are not safe for concurrent use; independent tables share no state and
// may be used from different goroutines.
package memo

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is returned when a table could not obtain the memory it
	// needed to grow. The table is left unchanged when this error occurs.
	ErrAllocation = errors.New("memo table allocation failure")

	// ErrRange is returned when the destination buffer passed to WriteOut or
	// WriteOutSubset is too small, or when the start index is out of range.
	ErrRange = errors.New("memo table index out of range")

	// ErrTypeMismatch is returned when a value does not match the type of
	// values held by a table, for example a byte array of the wrong length
	// inserted into a fixed-length byte array table.
	ErrTypeMismatch = errors.New("memo table type mismatch")
)

// Table is the interface implemented by memo tables holding values of type T.
type Table[T any] interface {
	// Resets the table to its initial empty state. Indexes previously returned
	// by the table become invalid.
	Reset()

	// Returns the number of distinct values in the table, including null if it
	// was inserted.
	Size() int

	// Returns the index of null, and whether it was inserted in the table.
	GetNull() (index int32, present bool)

	// Returns the index of null, inserting it if it was not present yet.
	GetOrInsertNull() (index int32, wasAlreadyPresent bool)

	// Looks up the index of value. The method never mutates the table.
	Get(value T) (index int32, found bool)

	// Returns the index of value, inserting it if it was not present yet. The
	// only error conditions are a failure to allocate memory, or a value that
	// does not match the table type; the table is not modified on error.
	GetOrInsert(value T) (index int32, wasNewlyInserted bool, err error)

	// Writes the values of the table to dst, each at the position of its index.
	// The position of null, if any, is left untouched.
	//
	// dst must be long enough to hold the highest non-null index, otherwise an
	// error wrapping ErrRange is returned and nothing is written.
	WriteOut(dst []T) error

	// Like WriteOut but only writes values with an index greater or equal to
	// start, the value at index i is written to dst[i-start].
	WriteOutSubset(start int, dst []T) error
}

const noIndex int32 = -1

func allocationError(err error) error {
	return fmt.Errorf("%w: %w", ErrAllocation, err)
}

// subsetLength validates the arguments of a WriteOutSubset call on a table of
// the given size and returns the number of positions that will be written.
func subsetLength(start, size int, null int32, dstLen int) (int, error) {
	if start < 0 || start > size {
		return 0, fmt.Errorf("%w: start index %d out of bounds [0:%d]", ErrRange, start, size)
	}

	end := size
	if int(null) == end-1 {
		// Null has no value, it does not need room in the output when it is
		// the entry with the highest index.
		end--
	}

	n := end - start
	if n < 0 {
		n = 0
	}
	if dstLen < n {
		return 0, fmt.Errorf("%w: writing %d values from index %d to a buffer of length %d", ErrRange, n, start, dstLen)
	}
	return n, nil
}

func writeOut[T any](dst, values []T, start, n int, null int32) {
	src := values[start : start+n]

	if j := int(null) - start; j >= 0 && j < n {
		copy(dst[:j], src[:j])
		copy(dst[j+1:n], src[j+1:])
	} else {
		copy(dst, src)
	}
}
