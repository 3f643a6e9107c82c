package dict

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/segmentio/encoding/thrift"

	"github.com/segmentio/memo/compress"
	"github.com/segmentio/memo/compress/brotli"
	"github.com/segmentio/memo/compress/gzip"
	"github.com/segmentio/memo/compress/lz4"
	"github.com/segmentio/memo/compress/snappy"
	"github.com/segmentio/memo/compress/uncompressed"
	"github.com/segmentio/memo/compress/zstd"
	"github.com/segmentio/memo/encoding/plain"
	"github.com/segmentio/memo/encoding/rle"
	"github.com/segmentio/memo/format"
)

const (
	// Upper bound on the size of serialized page headers, which is checked
	// before allocating memory to read a header.
	maxPageHeaderSize = 1 << 16

	// Upper bound on the compressed and uncompressed sizes of pages.
	maxPageSize = 256 * 1024 * 1024

	// Memory allocated ahead of reading a page payload. Larger payloads grow
	// the buffers as data is read, so truncated or corrupted inputs cannot
	// cause allocations larger than the data they hold.
	pageBufferSize = 64 * 1024
)

var (
	// ErrCorruptPage is returned when reading a page which is not properly
	// framed or whose payload does not match its header.
	ErrCorruptPage = errors.New("corrupt page")

	// ErrPageType is returned when decoding a page of the wrong type.
	ErrPageType = errors.New("unexpected page type")
)

var codecs = map[format.CompressionCodec]compress.Codec{
	format.Uncompressed: new(uncompressed.Codec),
	format.Snappy:       new(snappy.Codec),
	format.Gzip:         new(gzip.Codec),
	format.Brotli:       new(brotli.Codec),
	format.Zstd:         new(zstd.Codec),
	format.Lz4Raw:       new(lz4.Codec),
}

// LookupCompressionCodec returns the codec for the given compression code, or
// nil if it is not supported.
func LookupCompressionCodec(codec format.CompressionCodec) compress.Codec {
	return codecs[codec]
}

// Page is a page read back from the output of an Encoder.
type Page struct {
	Header format.PageHeader
	// Uncompressed payload of the page.
	Data []byte
}

// NumValues returns the number of values declared by the page header.
func (p *Page) NumValues() int {
	switch {
	case p.Header.DictionaryPageHeader != nil:
		return int(p.Header.DictionaryPageHeader.NumValues)
	case p.Header.DataPageHeader != nil:
		return int(p.Header.DataPageHeader.NumValues)
	default:
		return 0
	}
}

func checksum(b []byte) int32 { return int32(crc32.ChecksumIEEE(b)) }

func appendPageHeader(dst []byte, protocol thrift.Protocol, header *format.PageHeader) ([]byte, error) {
	b, err := thrift.Marshal(protocol, header)
	if err != nil {
		return dst, fmt.Errorf("encoding page header: %w", err)
	}
	dst = binary.AppendUvarint(dst, uint64(len(b)))
	return append(dst, b...), nil
}

// ReadPage reads the next page from r. The method returns io.EOF if r is
// positioned at the end of its input, and never reads past the end of the page.
func ReadPage(r io.Reader) (*Page, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReader{r: r}
	}

	headerSize, err := binary.ReadUvarint(br)
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("reading page header size: %w", unexpectedEOF(err))
	}
	if headerSize > maxPageHeaderSize {
		return nil, fmt.Errorf("%w: page header of %d bytes exceeds the limit of %d", ErrCorruptPage, headerSize, maxPageHeaderSize)
	}

	b := make([]byte, headerSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("reading page header: %w", unexpectedEOF(err))
	}

	page := new(Page)
	if err := thrift.Unmarshal(new(thrift.CompactProtocol), b, &page.Header); err != nil {
		return nil, fmt.Errorf("%w: decoding page header: %w", ErrCorruptPage, err)
	}

	h := &page.Header
	if h.CompressedPageSize < 0 || h.UncompressedPageSize < 0 {
		return nil, fmt.Errorf("%w: negative page size", ErrCorruptPage)
	}

	if h.CompressedPageSize > maxPageSize || h.UncompressedPageSize > maxPageSize {
		return nil, fmt.Errorf("%w: %s of %d/%d bytes exceeds the limit of %d", ErrCorruptPage, h.Type, h.CompressedPageSize, h.UncompressedPageSize, maxPageSize)
	}

	payload := bytes.NewBuffer(make([]byte, 0, min(int(h.CompressedPageSize), pageBufferSize)))
	if _, err := payload.ReadFrom(io.LimitReader(r, int64(h.CompressedPageSize))); err != nil {
		return nil, fmt.Errorf("reading %s payload: %w", h.Type, unexpectedEOF(err))
	}
	if payload.Len() < int(h.CompressedPageSize) {
		return nil, fmt.Errorf("reading %s payload of %d bytes: %w", h.Type, h.CompressedPageSize, io.ErrUnexpectedEOF)
	}
	compressed := payload.Bytes()
	if sum := checksum(compressed); sum != h.CRC {
		return nil, fmt.Errorf("%w: %s checksum mismatch: want=%08x got=%08x", ErrCorruptPage, h.Type, uint32(h.CRC), uint32(sum))
	}

	codec := LookupCompressionCodec(h.Codec)
	if codec == nil {
		return nil, fmt.Errorf("%w: unsupported compression codec %s", ErrCorruptPage, h.Codec)
	}

	page.Data, err = codec.Decode(make([]byte, 0, min(int(h.UncompressedPageSize), pageBufferSize)), compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s payload with %s: %w", h.Type, codec, err)
	}
	if len(page.Data) != int(h.UncompressedPageSize) {
		return nil, fmt.Errorf("%w: %s payload size mismatch: want=%d got=%d", ErrCorruptPage, h.Type, h.UncompressedPageSize, len(page.Data))
	}
	return page, nil
}

// DecodeDictionary decodes the entries of a dictionary page.
func DecodeDictionary[T any](dst []T, page *Page, decode plain.Decoder[T]) ([]T, error) {
	h := page.Header.DictionaryPageHeader
	if page.Header.Type != format.DictionaryPage || h == nil {
		return dst, fmt.Errorf("%w: decoding dictionary from %s", ErrPageType, page.Header.Type)
	}
	if h.Encoding != format.Plain {
		return dst, fmt.Errorf("%w: unsupported dictionary encoding %s", ErrCorruptPage, h.Encoding)
	}
	return decode(dst, page.Data, int(h.NumValues))
}

// DecodeIndexes decodes the dictionary indexes of a data page.
func DecodeIndexes(dst []int32, page *Page) ([]int32, error) {
	h := page.Header.DataPageHeader
	if page.Header.Type != format.DataPage || h == nil {
		return dst, fmt.Errorf("%w: decoding indexes from %s", ErrPageType, page.Header.Type)
	}
	if h.Encoding != format.RLEDictionary {
		return dst, fmt.Errorf("%w: unsupported data page encoding %s", ErrCorruptPage, h.Encoding)
	}
	return rle.DecodeIndexes(dst, page.Data, int(h.NumValues))
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type byteReader struct {
	r io.Reader
	b [1]byte
}

func (r *byteReader) ReadByte() (byte, error) {
	_, err := io.ReadFull(r.r, r.b[:])
	return r.b[0], err
}
