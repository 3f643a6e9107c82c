package memo

import (
	"math"

	"github.com/google/uuid"

	"github.com/segmentio/memo/hashprobe"
	"github.com/segmentio/memo/memory"
)

// class carries the functions which specialize memo tables for a type of
// values: how values are turned into keys of the hash engine, and which engine
// is used to hold them.
type class[T any, K hashprobe.Key] struct {
	name     string
	key      func(T) K
	newTable func(cap int, maxLoad float64, alloc memory.Allocator) *hashprobe.Table[K]
}

var int8Class = class[int8, uint32]{
	name:     "INT8",
	key:      func(v int8) uint32 { return uint32(v) },
	newTable: hashprobe.NewUint32Table,
}

var int16Class = class[int16, uint32]{
	name:     "INT16",
	key:      func(v int16) uint32 { return uint32(v) },
	newTable: hashprobe.NewUint32Table,
}

var int32Class = class[int32, uint32]{
	name:     "INT32",
	key:      func(v int32) uint32 { return uint32(v) },
	newTable: hashprobe.NewUint32Table,
}

var int64Class = class[int64, uint64]{
	name:     "INT64",
	key:      func(v int64) uint64 { return uint64(v) },
	newTable: hashprobe.NewUint64Table,
}

var uint8Class = class[uint8, uint32]{
	name:     "UINT8",
	key:      func(v uint8) uint32 { return uint32(v) },
	newTable: hashprobe.NewUint32Table,
}

var uint16Class = class[uint16, uint32]{
	name:     "UINT16",
	key:      func(v uint16) uint32 { return uint32(v) },
	newTable: hashprobe.NewUint32Table,
}

var uint32Class = class[uint32, uint32]{
	name:     "UINT32",
	key:      func(v uint32) uint32 { return v },
	newTable: hashprobe.NewUint32Table,
}

var uint64Class = class[uint64, uint64]{
	name:     "UINT64",
	key:      func(v uint64) uint64 { return v },
	newTable: hashprobe.NewUint64Table,
}

// Floats are keyed by their bit pattern, -0 and +0 are distinct values, and so
// are NaNs with different payloads, while a given NaN is equal to itself.
var float32Class = class[float32, uint32]{
	name:     "FLOAT",
	key:      math.Float32bits,
	newTable: hashprobe.NewUint32Table,
}

var float64Class = class[float64, uint64]{
	name:     "DOUBLE",
	key:      math.Float64bits,
	newTable: hashprobe.NewUint64Table,
}

var uuidClass = class[uuid.UUID, [16]byte]{
	name:     "UUID",
	key:      func(v uuid.UUID) [16]byte { return v },
	newTable: hashprobe.NewUint128Table,
}
