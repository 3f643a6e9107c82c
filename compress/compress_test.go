package compress_test

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/memo/compress"
	"github.com/segmentio/memo/compress/brotli"
	"github.com/segmentio/memo/compress/gzip"
	"github.com/segmentio/memo/compress/lz4"
	"github.com/segmentio/memo/compress/snappy"
	"github.com/segmentio/memo/compress/uncompressed"
	"github.com/segmentio/memo/compress/zstd"
	"github.com/segmentio/memo/format"
)

var codecs = []struct {
	scenario string
	codec    compress.Codec
	code     format.CompressionCodec
}{
	{scenario: "uncompressed", codec: new(uncompressed.Codec), code: format.Uncompressed},
	{scenario: "snappy", codec: new(snappy.Codec), code: format.Snappy},
	{scenario: "gzip", codec: new(gzip.Codec), code: format.Gzip},
	{scenario: "brotli", codec: new(brotli.Codec), code: format.Brotli},
	{scenario: "zstd", codec: new(zstd.Codec), code: format.Zstd},
	{scenario: "lz4", codec: new(lz4.Codec), code: format.Lz4Raw},
}

func TestCompressionCodec(t *testing.T) {
	random := bytes.Repeat([]byte("1234567890qwertyuiopasdfghjklzxcvbnm"), 1000)
	buffer := make([]byte, 0, len(random))
	output := make([]byte, 0, len(random))

	for _, test := range codecs {
		t.Run(test.scenario, func(t *testing.T) {
			if code := test.codec.CompressionCodec(); code != test.code {
				t.Errorf("wrong compression codec: want=%s got=%s", test.code, code)
			}
			if name := test.codec.String(); name != test.code.String() {
				t.Errorf("codec name does not match its code: want=%s got=%s", test.code, name)
			}

			const N = 10
			// Run the test multiple times to exercise codecs that maintain
			// state across compression/decompression.
			for i := 0; i < N; i++ {
				var err error

				buffer, err = test.codec.Encode(buffer[:0], random)
				if err != nil {
					t.Fatal(err)
				}

				output, err = test.codec.Decode(output[:0], buffer)
				if err != nil {
					t.Fatal(err)
				}

				if !bytes.Equal(random, output) {
					t.Errorf("content mismatch after compressing and decompressing (attempt %d/%d)", i+1, N)
				}
			}
		})
	}
}

func TestCompressionCodecEmptyInput(t *testing.T) {
	for _, test := range codecs {
		t.Run(test.scenario, func(t *testing.T) {
			b, err := test.codec.Encode(nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			v, err := test.codec.Decode(nil, b)
			if err != nil {
				t.Fatal(err)
			}
			if len(v) != 0 {
				t.Errorf("decoding compressed empty input produced %d bytes", len(v))
			}
		})
	}
}

func TestCompressionCodecConcurrency(t *testing.T) {
	for _, test := range codecs {
		t.Run(test.scenario, func(t *testing.T) {
			wg := sync.WaitGroup{}

			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					src := bytes.Repeat([]byte{byte('a' + i)}, 1000+i)

					for j := 0; j < 10; j++ {
						b, err := test.codec.Encode(nil, src)
						if err != nil {
							t.Error(err)
							return
						}
						v, err := test.codec.Decode(nil, b)
						if err != nil {
							t.Error(err)
							return
						}
						if !bytes.Equal(src, v) {
							t.Errorf("content mismatch in goroutine %d", i)
							return
						}
					}
				}(i)
			}

			wg.Wait()
		})
	}
}

type simpleReader struct{ io.Reader }

func (s *simpleReader) Close() error            { return nil }
func (s *simpleReader) Reset(r io.Reader) error { s.Reader = r; return nil }

type simpleWriter struct{ io.Writer }

func (s *simpleWriter) Close() error            { return nil }
func (s *simpleWriter) Reset(w io.Writer) error { s.Writer = w; return nil }

func BenchmarkCompressor(b *testing.B) {
	compressor := compress.Compressor{}
	src := make([]byte, 1000)
	dst := make([]byte, 1000)

	allocs := testing.AllocsPerRun(b.N, func() {
		var err error
		dst, err = compressor.Encode(dst, src, func(w io.Writer) (compress.Writer, error) {
			return &simpleWriter{Writer: w}, nil
		})
		if err != nil {
			b.Fatal(err)
		}
	})

	b.ReportMetric(allocs, "allocs/encode")
}

func BenchmarkDecompressor(b *testing.B) {
	decompressor := compress.Decompressor{}
	src := make([]byte, 1000)
	dst := make([]byte, 1000)

	allocs := testing.AllocsPerRun(b.N, func() {
		var err error
		dst, err = decompressor.Decode(dst, src, func(r io.Reader) (compress.Reader, error) {
			return &simpleReader{Reader: r}, nil
		})
		if err != nil {
			b.Fatal(err)
		}
	})

	b.ReportMetric(allocs, "allocs/decode")
}
