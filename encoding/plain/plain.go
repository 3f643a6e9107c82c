// Package plain implements the PLAIN encoding of dictionary values.
//
// Fixed-width values are written in little-endian byte order using their own
// width, booleans are bit-packed starting from the least significant bit, and
// byte arrays are prefixed with their length as a 4 bytes little-endian
// integer. Fixed-length byte arrays and UUIDs are written without prefix.
package plain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unsafe"

	"github.com/google/uuid"
)

const ByteArrayLengthSize = 4

// ErrInvalidLength is returned when decoding an input which size does not
// match the number of values expected to be decoded.
var ErrInvalidLength = errors.New("invalid PLAIN input length")

// Encoder is the signature of functions appending the PLAIN representation of
// values to a buffer.
type Encoder[T any] func(dst []byte, values []T) []byte

// Decoder is the signature of functions decoding numValues values from src
// and appending them to dst.
type Decoder[T any] func(dst []T, src []byte, numValues int) ([]T, error)

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func sizeof[T integer]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func encodeInt[T integer](dst []byte, values []T) []byte {
	size := sizeof[T]()

	for _, v := range values {
		u := uint64(v)
		for i := 0; i < size; i++ {
			dst = append(dst, byte(u>>(8*uint(i))))
		}
	}

	return dst
}

func decodeInt[T integer](dst []T, src []byte, numValues int) ([]T, error) {
	size := sizeof[T]()

	if numValues < 0 || len(src) != numValues*size {
		return dst, fmt.Errorf("decoding %d values of %d bytes from %d bytes: %w", numValues, size, len(src), ErrInvalidLength)
	}

	for i := 0; i < len(src); i += size {
		u := uint64(0)
		for j := size - 1; j >= 0; j-- {
			u = (u << 8) | uint64(src[i+j])
		}
		dst = append(dst, T(u))
	}

	return dst, nil
}

func Int8(dst []byte, values []int8) []byte     { return encodeInt(dst, values) }
func Int16(dst []byte, values []int16) []byte   { return encodeInt(dst, values) }
func Int32(dst []byte, values []int32) []byte   { return encodeInt(dst, values) }
func Int64(dst []byte, values []int64) []byte   { return encodeInt(dst, values) }
func Uint8(dst []byte, values []uint8) []byte   { return append(dst, values...) }
func Uint16(dst []byte, values []uint16) []byte { return encodeInt(dst, values) }
func Uint32(dst []byte, values []uint32) []byte { return encodeInt(dst, values) }
func Uint64(dst []byte, values []uint64) []byte { return encodeInt(dst, values) }

func Float32(dst []byte, values []float32) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func Float64(dst []byte, values []float64) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}

// Boolean appends values packed in bits, the first value is written to the
// least significant bit of the first byte. The last byte is padded with zeros.
func Boolean(dst []byte, values []bool) []byte {
	for i := 0; i < len(values); i += 8 {
		b := byte(0)
		for j, v := range values[i:min(i+8, len(values))] {
			if v {
				b |= 1 << uint(j)
			}
		}
		dst = append(dst, b)
	}
	return dst
}

// ByteArray appends each value prefixed with its length.
func ByteArray(dst []byte, values [][]byte) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v)))
		dst = append(dst, v...)
	}
	return dst
}

// FixedLenByteArray appends the concatenation of values, which are expected to
// all have the same length.
func FixedLenByteArray(dst []byte, values [][]byte) []byte {
	for _, v := range values {
		dst = append(dst, v...)
	}
	return dst
}

// FixedLenByteArrayEncoder returns an encoder for values of the given size.
// Values shorter than size, like the nil placeholder of null in a dictionary,
// are padded with zeros; longer values are truncated.
func FixedLenByteArrayEncoder(size int) Encoder[[]byte] {
	return func(dst []byte, values [][]byte) []byte {
		for _, v := range values {
			n := min(len(v), size)
			dst = append(dst, v[:n]...)
			for ; n < size; n++ {
				dst = append(dst, 0)
			}
		}
		return dst
	}
}

func UUID(dst []byte, values []uuid.UUID) []byte {
	for i := range values {
		dst = append(dst, values[i][:]...)
	}
	return dst
}

func DecodeInt8(dst []int8, src []byte, numValues int) ([]int8, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeInt16(dst []int16, src []byte, numValues int) ([]int16, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeInt32(dst []int32, src []byte, numValues int) ([]int32, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeInt64(dst []int64, src []byte, numValues int) ([]int64, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeUint8(dst []uint8, src []byte, numValues int) ([]uint8, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeUint16(dst []uint16, src []byte, numValues int) ([]uint16, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeUint32(dst []uint32, src []byte, numValues int) ([]uint32, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeUint64(dst []uint64, src []byte, numValues int) ([]uint64, error) {
	return decodeInt(dst, src, numValues)
}

func DecodeFloat32(dst []float32, src []byte, numValues int) ([]float32, error) {
	if numValues < 0 || len(src) != 4*numValues {
		return dst, fmt.Errorf("decoding %d FLOAT values from %d bytes: %w", numValues, len(src), ErrInvalidLength)
	}
	for i := 0; i < len(src); i += 4 {
		dst = append(dst, math.Float32frombits(binary.LittleEndian.Uint32(src[i:])))
	}
	return dst, nil
}

func DecodeFloat64(dst []float64, src []byte, numValues int) ([]float64, error) {
	if numValues < 0 || len(src) != 8*numValues {
		return dst, fmt.Errorf("decoding %d DOUBLE values from %d bytes: %w", numValues, len(src), ErrInvalidLength)
	}
	for i := 0; i < len(src); i += 8 {
		dst = append(dst, math.Float64frombits(binary.LittleEndian.Uint64(src[i:])))
	}
	return dst, nil
}

func DecodeBoolean(dst []bool, src []byte, numValues int) ([]bool, error) {
	if numValues < 0 || len(src) != (numValues+7)/8 {
		return dst, fmt.Errorf("decoding %d BOOLEAN values from %d bytes: %w", numValues, len(src), ErrInvalidLength)
	}
	for i := 0; i < numValues; i++ {
		dst = append(dst, (src[i/8]>>uint(i%8))&1 != 0)
	}
	return dst, nil
}

// DecodeByteArray decodes length-prefixed values. The returned slices are
// views of src.
func DecodeByteArray(dst [][]byte, src []byte, numValues int) ([][]byte, error) {
	for i := 0; i < numValues; i++ {
		if len(src) < ByteArrayLengthSize {
			return dst, fmt.Errorf("decoding length of BYTE_ARRAY value %d/%d: %w", i, numValues, ErrInvalidLength)
		}
		n := int(binary.LittleEndian.Uint32(src))
		src = src[ByteArrayLengthSize:]
		if n > len(src) {
			return dst, fmt.Errorf("decoding BYTE_ARRAY value %d/%d of length %d with %d bytes remaining: %w", i, numValues, n, len(src), ErrInvalidLength)
		}
		dst = append(dst, src[:n:n])
		src = src[n:]
	}
	if len(src) != 0 {
		return dst, fmt.Errorf("decoding %d BYTE_ARRAY values left %d trailing bytes: %w", numValues, len(src), ErrInvalidLength)
	}
	return dst, nil
}

// FixedLenByteArrayDecoder returns a decoder for values of the given size. The
// values returned by the decoder are views of its input.
func FixedLenByteArrayDecoder(size int) Decoder[[]byte] {
	return func(dst [][]byte, src []byte, numValues int) ([][]byte, error) {
		if numValues < 0 || len(src) != size*numValues {
			return dst, fmt.Errorf("decoding %d FIXED_LEN_BYTE_ARRAY values of size %d from %d bytes: %w", numValues, size, len(src), ErrInvalidLength)
		}
		for i := 0; i < numValues; i++ {
			j := i * size
			dst = append(dst, src[j:j+size:j+size])
		}
		return dst, nil
	}
}

func DecodeUUID(dst []uuid.UUID, src []byte, numValues int) ([]uuid.UUID, error) {
	if numValues < 0 || len(src) != 16*numValues {
		return dst, fmt.Errorf("decoding %d UUID values from %d bytes: %w", numValues, len(src), ErrInvalidLength)
	}
	for i := 0; i < len(src); i += 16 {
		dst = append(dst, uuid.UUID(src[i:i+16]))
	}
	return dst, nil
}

var (
	_ Encoder[int8]      = Int8
	_ Encoder[bool]      = Boolean
	_ Encoder[[]byte]    = ByteArray
	_ Encoder[uuid.UUID] = UUID
	_ Decoder[float64]   = DecodeFloat64
	_ Decoder[[]byte]    = DecodeByteArray
	_ Decoder[uuid.UUID] = DecodeUUID
)
