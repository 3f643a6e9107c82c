// Package gzip implements the GZIP compression codec.
package gzip

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/segmentio/memo/compress"
	"github.com/segmentio/memo/format"
)

const (
	emptyGzip = "\x1f\x8b\b\x00\x00\x00\x00\x00\x02\xff\x01\x00\x00\xff\xff\x00\x00\x00\x00\x00\x00\x00\x00"
)

const (
	NoCompression      = gzip.NoCompression
	BestSpeed          = gzip.BestSpeed
	BestCompression    = gzip.BestCompression
	DefaultCompression = gzip.DefaultCompression
	HuffmanOnly        = gzip.HuffmanOnly
)

type Codec struct {
	Level int

	r compress.Decompressor
	w compress.Compressor
}

func (c *Codec) String() string {
	return "GZIP"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Gzip
}

func (c *Codec) Encode(dst, src []byte) ([]byte, error) {
	return c.w.Encode(dst, src, func(w io.Writer) (compress.Writer, error) {
		z, err := gzip.NewWriterLevel(w, c.level())
		if err != nil {
			return nil, err
		}
		return gzipWriter{z}, nil
	})
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	return c.r.Decode(dst, src, func(r io.Reader) (compress.Reader, error) {
		z, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gzipReader{z}, nil
	})
}

func (c *Codec) level() int {
	if c.Level != 0 {
		return c.Level
	}
	return DefaultCompression
}

type gzipReader struct{ *gzip.Reader }

func (r gzipReader) Reset(rr io.Reader) error {
	if rr == nil {
		// Resetting to a valid empty stream releases the reference to the
		// previous input without failing, which lets the reader be pooled.
		rr = &emptyReader{s: emptyGzip}
	}
	return r.Reader.Reset(rr)
}

type gzipWriter struct{ *gzip.Writer }

func (w gzipWriter) Reset(ww io.Writer) error {
	w.Writer.Reset(ww)
	return nil
}

type emptyReader struct {
	s string
	i int
}

func (r *emptyReader) ReadByte() (byte, error) {
	if r.i == len(r.s) {
		return 0, io.EOF
	}
	b := r.s[r.i]
	r.i++
	return b, nil
}

func (r *emptyReader) Read(b []byte) (int, error) {
	if r.i == len(r.s) {
		return 0, io.EOF
	}
	n := copy(b, r.s[r.i:])
	r.i += n
	return n, nil
}
