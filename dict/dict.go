// Package dict implements dictionary encoding of columns on top of memo
// tables.
//
// An Encoder feeds column values to a memo table, buffers the indexes it
// returns, and writes them as pages: dictionary pages carrying the PLAIN
// encoded entries of the table, and data pages carrying the index stream in
// the RLE/bit-packed hybrid encoding.
//
// Deciding when a column should fall back to a non-dictionary encoding is left
// to the caller: the encoder only reports that the dictionary reached its
// maximum size by returning ErrDictionaryFull.
package dict

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/segmentio/encoding/thrift"

	"github.com/segmentio/memo"
	"github.com/segmentio/memo/compress"
	"github.com/segmentio/memo/encoding/plain"
	"github.com/segmentio/memo/encoding/rle"
	"github.com/segmentio/memo/format"
)

// ErrDictionaryFull is returned by encoders when a value that is not in the
// dictionary cannot be added because the dictionary reached its maximum size.
var ErrDictionaryFull = errors.New("dictionary is full")

// Encoder dictionary encodes values of type T.
//
// Encoders are not safe for concurrent use.
type Encoder[T any] struct {
	table       memo.Table[T]
	encode      plain.Encoder[T]
	compression compress.Codec
	maxSize     int
	logger      log.Logger
	metrics     *Metrics

	protocol thrift.CompactProtocol
	indexes  []int32
	numNulls int
	flushed  int

	values     []T
	page       []byte
	compressed []byte
	header     []byte
}

// NewEncoder constructs an encoder which records values in table and writes
// dictionary entries with the given PLAIN encoder.
//
// The function panics if the options are invalid.
func NewEncoder[T any](table memo.Table[T], values plain.Encoder[T], options ...EncoderOption) *Encoder[T] {
	config, err := NewEncoderConfig(options...)
	if err != nil {
		panic(err)
	}
	return &Encoder[T]{
		table:       table,
		encode:      values,
		compression: config.Compression,
		maxSize:     config.MaxDictionarySize,
		logger:      config.Logger,
		metrics:     config.Metrics,
	}
}

// Table returns the memo table that e records values in.
func (e *Encoder[T]) Table() memo.Table[T] { return e.table }

// Size returns the number of entries in the dictionary, including null.
func (e *Encoder[T]) Size() int { return e.table.Size() }

// NumValues returns the number of indexes buffered since the last data page
// was written, including nulls.
func (e *Encoder[T]) NumValues() int { return len(e.indexes) }

// Reset clears the dictionary and the buffered indexes. The next dictionary
// page written by e starts again from the first entry.
func (e *Encoder[T]) Reset() {
	e.table.Reset()
	e.indexes = e.indexes[:0]
	e.numNulls = 0
	e.flushed = 0
}

// Encode records values in the dictionary and buffers their indexes.
//
// The method returns the number of values consumed. When a value is not in the
// dictionary and the dictionary is full, it returns ErrDictionaryFull and the
// values that precede it remain encoded.
func (e *Encoder[T]) Encode(values []T) (int, error) {
	for i, value := range values {
		if e.table.Size() >= e.maxSize {
			if _, found := e.table.Get(value); !found {
				e.metrics.observeValues(i)
				e.full(i)
				return i, ErrDictionaryFull
			}
		}

		index, inserted, err := e.table.GetOrInsert(value)
		if err != nil {
			e.metrics.observeValues(i)
			return i, fmt.Errorf("dictionary encoding value %d: %w", i, err)
		}
		if inserted {
			e.metrics.observeEntry()
		}
		e.indexes = append(e.indexes, index)
	}
	e.metrics.observeValues(len(values))
	return len(values), nil
}

// EncodeNull records n nulls. Null takes a dictionary entry the first time it
// is encoded.
func (e *Encoder[T]) EncodeNull(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	index, found := e.table.GetNull()
	if !found {
		if e.table.Size() >= e.maxSize {
			e.full(0)
			return 0, ErrDictionaryFull
		}
		index, _ = e.table.GetOrInsertNull()
		e.metrics.observeEntry()
	}

	for i := 0; i < n; i++ {
		e.indexes = append(e.indexes, index)
	}
	e.numNulls += n
	e.metrics.observeNulls(n)
	return n, nil
}

func (e *Encoder[T]) full(consumed int) {
	e.metrics.observeDictionaryFull()
	level.Debug(e.logger).Log(
		"msg", "dictionary full",
		"size", e.table.Size(),
		"max", e.maxSize,
		"consumed", consumed,
	)
}

// WriteDictionaryPage writes the dictionary entries added since the previous
// call to w. The first call writes the whole dictionary, later ones write delta
// pages starting at the offset recorded in their header. The position of null
// holds the zero-value of T and is flagged in the page header.
func (e *Encoder[T]) WriteDictionaryPage(w io.Writer) error {
	size := e.table.Size()
	numValues := size - e.flushed

	if cap(e.values) < numValues {
		e.values = make([]T, numValues)
	} else {
		e.values = e.values[:numValues]
		clear(e.values)
	}

	if err := e.table.WriteOutSubset(e.flushed, e.values); err != nil {
		return fmt.Errorf("writing dictionary page of %d values: %w", numValues, err)
	}

	header := &format.DictionaryPageHeader{
		NumValues: int32(numValues),
		Encoding:  format.Plain,
		Offset:    int32(e.flushed),
	}
	if null, ok := e.table.GetNull(); ok && int(null) >= e.flushed {
		header.HasNull = true
		header.NullIndex = null
	}

	e.page = e.encode(e.page[:0], e.values)

	if err := e.writePage(w, &format.PageHeader{
		Type:                 format.DictionaryPage,
		DictionaryPageHeader: header,
	}); err != nil {
		return fmt.Errorf("writing dictionary page of %d values: %w", numValues, err)
	}

	level.Debug(e.logger).Log(
		"msg", "dictionary page written",
		"offset", e.flushed,
		"values", numValues,
		"null", header.HasNull,
	)
	e.flushed = size
	return nil
}

// WriteDataPage writes the buffered indexes to w and clears the buffer.
func (e *Encoder[T]) WriteDataPage(w io.Writer) error {
	numValues := len(e.indexes)

	page, err := rle.EncodeIndexes(e.page[:0], e.indexes)
	if err != nil {
		return fmt.Errorf("writing data page of %d values: %w", numValues, err)
	}
	e.page = page

	if err := e.writePage(w, &format.PageHeader{
		Type: format.DataPage,
		DataPageHeader: &format.DataPageHeader{
			NumValues: int32(numValues),
			Encoding:  format.RLEDictionary,
			NumNulls:  int32(e.numNulls),
		},
	}); err != nil {
		return fmt.Errorf("writing data page of %d values: %w", numValues, err)
	}

	level.Debug(e.logger).Log(
		"msg", "data page written",
		"values", numValues,
		"nulls", e.numNulls,
		"size", len(e.page),
	)
	e.indexes = e.indexes[:0]
	e.numNulls = 0
	return nil
}

// writePage compresses the payload held in e.page and writes it to w, preceded
// by its header.
func (e *Encoder[T]) writePage(w io.Writer, header *format.PageHeader) error {
	compressed, err := e.compression.Encode(e.compressed[:0], e.page)
	if err != nil {
		return fmt.Errorf("compressing page with %s: %w", e.compression, err)
	}
	e.compressed = compressed

	header.UncompressedPageSize = int32(len(e.page))
	header.CompressedPageSize = int32(len(compressed))
	header.CRC = checksum(compressed)
	header.Codec = e.compression.CompressionCodec()

	e.header, err = appendPageHeader(e.header[:0], &e.protocol, header)
	if err != nil {
		return err
	}

	n1, err := w.Write(e.header)
	if err != nil {
		return err
	}
	n2, err := w.Write(compressed)
	if err != nil {
		return err
	}

	e.metrics.observePage(header.Type, n1+n2, len(e.page))
	return nil
}
