// Package rle implements the hybrid of run-length and bit-packing encodings
// used to write the index streams of dictionary encoded pages.
//
// The encoded stream is a sequence of runs, each starting with a header
// written as an unsigned varint. The lowest bit of the header tells the kind
// of run:
//
//   - 0: run-length; the header holds the repeat count in its upper bits and
//     is followed by the repeated value, using the smallest number of bytes
//     able to represent the bit width.
//   - 1: bit-packed; the header holds the number of groups of 8 values in its
//     upper bits and is followed by the values packed in bitWidth bits each,
//     starting from the least significant bit of the first byte.
//
// The last group of a bit-packed run may be padded with zero values, decoders
// must be told how many values the stream holds to discard the padding.
package rle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

const (
	// Runs of at least this many repeated values are written as run-length
	// runs rather than bit-packed.
	minRunLength = 8

	// Upper bound of the repeat count of a single run-length run, protects
	// decoders from allocating unbounded memory on corrupted inputs.
	maxRunLength = 1 << 26

	MaxBitWidth = 32
)

var (
	ErrInvalidBitWidth = errors.New("invalid RLE bit width")
	ErrInvalidInput    = errors.New("invalid RLE input")
)

func validateBitWidth(bitWidth uint) error {
	if bitWidth > MaxBitWidth {
		return fmt.Errorf("%w: %d", ErrInvalidBitWidth, bitWidth)
	}
	return nil
}

func byteCount(numBits uint) int { return int((numBits + 7) / 8) }

func runLength(src []int32) int {
	i := 1
	for i < len(src) && src[i] == src[0] {
		i++
	}
	return i
}

// EncodeInt32 appends the hybrid encoding of src to dst, using bitWidth bits
// per value. Bits of values beyond the bit width are discarded.
func EncodeInt32(dst []byte, src []int32, bitWidth uint) ([]byte, error) {
	if err := validateBitWidth(bitWidth); err != nil {
		return dst, err
	}

	for i := 0; i < len(src); {
		if n := runLength(src[i:]); n >= minRunLength {
			dst = encodeRunLength(dst, n, src[i], bitWidth)
			i += n
			continue
		}

		// Accumulate groups of 8 values until the start of a group is the
		// beginning of a run long enough to be written as run-length.
		j := i
		for j < len(src) {
			j += 8
			if j < len(src) && runLength(src[j:]) >= minRunLength {
				break
			}
		}
		if j > len(src) {
			j = len(src)
		}
		dst = encodeBitPack(dst, src[i:j], bitWidth)
		i = j
	}

	return dst, nil
}

func encodeRunLength(dst []byte, count int, value int32, bitWidth uint) []byte {
	dst = binary.AppendUvarint(dst, uint64(count)<<1)
	u := uint32(value)
	for i := 0; i < byteCount(bitWidth); i++ {
		dst = append(dst, byte(u>>(8*uint(i))))
	}
	return dst
}

func encodeBitPack(dst []byte, src []int32, bitWidth uint) []byte {
	numGroups := (len(src) + 7) / 8
	dst = binary.AppendUvarint(dst, uint64(numGroups)<<1|1)

	mask := uint64(1)<<bitWidth - 1
	acc := uint64(0)
	n := uint(0)

	for i := 0; i < 8*numGroups; i++ {
		v := uint64(0)
		if i < len(src) {
			v = uint64(uint32(src[i])) & mask
		}
		acc |= v << n
		n += bitWidth
		for n >= 8 {
			dst = append(dst, byte(acc))
			acc >>= 8
			n -= 8
		}
	}

	return dst
}

// DecodeInt32 decodes the hybrid encoding of values of bitWidth bits from src
// and appends them to dst. The padding of bit-packed runs is decoded as well.
func DecodeInt32(dst []int32, src []byte, bitWidth uint) ([]int32, error) {
	return decodeInt32(dst, src, bitWidth, -1)
}

// decodeInt32 is like DecodeInt32 but fails without decoding a run if it would
// take the number of decoded values above limit. A negative limit only bounds
// the length of individual runs.
func decodeInt32(dst []int32, src []byte, bitWidth uint, limit int) ([]int32, error) {
	if err := validateBitWidth(bitWidth); err != nil {
		return dst, err
	}

	remain := uint64(limit)
	if limit < 0 {
		remain = 1<<64 - 1
	}

	for offset := 0; offset < len(src); {
		header, n := binary.Uvarint(src[offset:])
		if n <= 0 {
			return dst, fmt.Errorf("decoding run header at offset %d: %w", offset, ErrInvalidInput)
		}
		offset += n
		count := header >> 1

		if (header & 1) == 0 {
			size := byteCount(bitWidth)
			if count > maxRunLength || count > remain {
				return dst, fmt.Errorf("decoding run of %d values at offset %d: %w", count, offset, ErrInvalidInput)
			}
			if len(src)-offset < size {
				return dst, fmt.Errorf("decoding repeated value of %d bytes at offset %d: %w", size, offset, ErrInvalidInput)
			}
			u := uint32(0)
			for i := size - 1; i >= 0; i-- {
				u = (u << 8) | uint32(src[offset+i])
			}
			offset += size
			remain -= count
			for i := uint64(0); i < count; i++ {
				dst = append(dst, int32(u))
			}
		} else {
			// Each group of 8 values takes bitWidth bytes.
			if count > uint64(len(src)) || 8*count > remain {
				return dst, fmt.Errorf("decoding %d bit-packed groups at offset %d: %w", count, offset, ErrInvalidInput)
			}
			size := int(count) * int(bitWidth)
			if len(src)-offset < size {
				return dst, fmt.Errorf("decoding %d bit-packed groups of %d bits at offset %d: %w", count, bitWidth, offset, ErrInvalidInput)
			}
			dst = decodeBitPack(dst, src[offset:offset+size], 8*int(count), bitWidth)
			offset += size
			remain -= 8 * count
		}
	}

	return dst, nil
}

func decodeBitPack(dst []int32, src []byte, numValues int, bitWidth uint) []int32 {
	mask := uint64(1)<<bitWidth - 1
	acc := uint64(0)
	n := uint(0)

	for i := 0; i < numValues; i++ {
		for n < bitWidth {
			acc |= uint64(src[0]) << n
			src = src[1:]
			n += 8
		}
		dst = append(dst, int32(uint32(acc&mask)))
		acc >>= bitWidth
		n -= bitWidth
	}

	return dst
}

// BitWidth returns the number of bits needed to represent the greatest of the
// given indexes.
func BitWidth(indexes []int32) uint {
	max := uint32(0)
	for _, i := range indexes {
		max |= uint32(i)
	}
	return uint(bits.Len32(max))
}

// EncodeIndexes appends the encoding of dictionary indexes to dst. The stream
// is prefixed with one byte holding the bit width of values.
func EncodeIndexes(dst []byte, indexes []int32) ([]byte, error) {
	bitWidth := BitWidth(indexes)
	return EncodeInt32(append(dst, byte(bitWidth)), indexes, bitWidth)
}

// DecodeIndexes decodes numValues indexes written by EncodeIndexes from src and
// appends them to dst. Inputs holding more values than numValues, padding
// aside, are rejected before the excess values are decoded.
func DecodeIndexes(dst []int32, src []byte, numValues int) ([]int32, error) {
	if numValues < 0 {
		return dst, fmt.Errorf("decoding %d indexes: %w", numValues, ErrInvalidInput)
	}
	if len(src) == 0 {
		if numValues == 0 {
			return dst, nil
		}
		return dst, fmt.Errorf("decoding %d indexes from an empty input: %w", numValues, ErrInvalidInput)
	}

	offset := len(dst)
	dst, err := decodeInt32(dst, src[1:], uint(src[0]), numValues+7)
	if err != nil {
		return dst, fmt.Errorf("decoding dictionary indexes: %w", err)
	}

	if decoded := len(dst) - offset; decoded < numValues || decoded-numValues >= 8 {
		return dst, fmt.Errorf("decoding %d indexes but the input holds %d: %w", numValues, decoded, ErrInvalidInput)
	}

	return dst[:offset+numValues], nil
}
