// Package format declares the structures of page headers written by dictionary
// encoders. Headers are serialized with the thrift compact protocol.
package format

import "fmt"

type CompressionCodec int32

const (
	Uncompressed CompressionCodec = 0
	Snappy       CompressionCodec = 1
	Gzip         CompressionCodec = 2
	Brotli       CompressionCodec = 4
	Zstd         CompressionCodec = 6
	Lz4Raw       CompressionCodec = 7
)

func (c CompressionCodec) String() string {
	switch c {
	case Uncompressed:
		return "UNCOMPRESSED"
	case Snappy:
		return "SNAPPY"
	case Gzip:
		return "GZIP"
	case Brotli:
		return "BROTLI"
	case Zstd:
		return "ZSTD"
	case Lz4Raw:
		return "LZ4_RAW"
	default:
		return fmt.Sprintf("CompressionCodec(%d)", int32(c))
	}
}

type PageType int32

const (
	DataPage       PageType = 0
	DictionaryPage PageType = 2
)

func (t PageType) String() string {
	switch t {
	case DataPage:
		return "DATA_PAGE"
	case DictionaryPage:
		return "DICTIONARY_PAGE"
	default:
		return fmt.Sprintf("PageType(%d)", int32(t))
	}
}

type Encoding int32

const (
	Plain         Encoding = 0
	RLEDictionary Encoding = 8
)

func (e Encoding) String() string {
	switch e {
	case Plain:
		return "PLAIN"
	case RLEDictionary:
		return "RLE_DICTIONARY"
	default:
		return fmt.Sprintf("Encoding(%d)", int32(e))
	}
}

type PageHeader struct {
	// The type of the page indicates which of the *Header fields is set.
	Type PageType `thrift:"1,required"`

	// Uncompressed page size in bytes (not including this header).
	UncompressedPageSize int32 `thrift:"2,required"`

	// Compressed (and potentially encrypted) page size in bytes, not including
	// this header.
	CompressedPageSize int32 `thrift:"3,required"`

	// The 32-bit CRC checksum (IEEE) of the compressed page payload.
	CRC int32 `thrift:"4,optional"`

	// Codec used to compress the page payload.
	Codec CompressionCodec `thrift:"5,optional"`

	DataPageHeader       *DataPageHeader       `thrift:"6,optional"`
	DictionaryPageHeader *DictionaryPageHeader `thrift:"7,optional"`
}

type DataPageHeader struct {
	// Number of values, including nulls.
	NumValues int32 `thrift:"1,required"`

	// Encoding used for the values of the page.
	Encoding Encoding `thrift:"2,required"`

	// Number of values which are the index of null.
	NumNulls int32 `thrift:"3,optional"`
}

type DictionaryPageHeader struct {
	// Number of values in the dictionary.
	NumValues int32 `thrift:"1,required"`

	// Encoding of the dictionary values.
	Encoding Encoding `thrift:"2,required"`

	// Index of the first value of the page. Dictionaries may be written in
	// multiple pages, each page after the first holding the values added since
	// the previous one.
	Offset int32 `thrift:"3,optional"`

	// Whether one of the entries is the null value; its position in the page
	// is held by NullIndex and filled with a zero value.
	HasNull   bool  `thrift:"4,optional"`
	NullIndex int32 `thrift:"5,optional"`
}
