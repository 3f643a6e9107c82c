// Package wyhash implements a hashing algorithm derived from the Go runtime's
// internal hashing fallback, which uses a variation of the wyhash algorithm.
//
// The functions hash fixed-width keys of the hash probing tables: 32, 64 and
// 128 bits values. Variable length keys are first reduced to 64 bits and then
// mixed with the table seed through Hash64.
package wyhash

import (
	"encoding/binary"
	"math/bits"
)

const (
	m1 = 0xa0761d6478bd642f
	m2 = 0xe7037ed1a0b428db
	m5 = 0x1d8e4e27c47d124f
)

func mix(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return hi ^ lo
}

func Hash32(value uint32, seed uintptr) uintptr {
	return Hash64(uint64(value), seed)
}

func Hash64(value uint64, seed uintptr) uintptr {
	return uintptr(mix(m5^8, mix(value^m2, value^uint64(seed)^m1)))
}

func Hash128(value [16]byte, seed uintptr) uintptr {
	a := binary.LittleEndian.Uint64(value[:8])
	b := binary.LittleEndian.Uint64(value[8:])
	return uintptr(mix(m5^16, mix(a^m2, b^uint64(seed)^m1)))
}

func MultiHash32(hashes []uintptr, values []uint32, seed uintptr) {
	for i := range hashes {
		hashes[i] = Hash32(values[i], seed)
	}
}

func MultiHash64(hashes []uintptr, values []uint64, seed uintptr) {
	for i := range hashes {
		hashes[i] = Hash64(values[i], seed)
	}
}

func MultiHash128(hashes []uintptr, values [][16]byte, seed uintptr) {
	for i := range hashes {
		hashes[i] = Hash128(values[i], seed)
	}
}
