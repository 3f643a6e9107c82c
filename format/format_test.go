package format_test

import (
	"reflect"
	"testing"

	"github.com/segmentio/encoding/thrift"

	"github.com/segmentio/memo/format"
)

func TestMarshalUnmarshalPageHeader(t *testing.T) {
	protocol := &thrift.CompactProtocol{}

	for _, header := range []*format.PageHeader{
		{
			Type:                 format.DictionaryPage,
			UncompressedPageSize: 100,
			CompressedPageSize:   42,
			CRC:                  -1234,
			Codec:                format.Zstd,
			DictionaryPageHeader: &format.DictionaryPageHeader{
				NumValues: 10,
				Encoding:  format.Plain,
				Offset:    20,
				HasNull:   true,
				NullIndex: 23,
			},
		},
		{
			Type:                 format.DataPage,
			UncompressedPageSize: 8,
			CompressedPageSize:   8,
			DataPageHeader: &format.DataPageHeader{
				NumValues: 1000,
				Encoding:  format.RLEDictionary,
				NumNulls:  3,
			},
		},
	} {
		t.Run(header.Type.String(), func(t *testing.T) {
			b, err := thrift.Marshal(protocol, header)
			if err != nil {
				t.Fatal(err)
			}

			decoded := &format.PageHeader{}
			if err := thrift.Unmarshal(protocol, b, decoded); err != nil {
				t.Fatal(err)
			}

			if !reflect.DeepEqual(header, decoded) {
				t.Error("values mismatch:")
				t.Logf("expected:\n%#v", header)
				t.Logf("found:\n%#v", decoded)
			}
		})
	}
}

func TestStringers(t *testing.T) {
	for _, test := range []struct {
		value interface{ String() string }
		want  string
	}{
		{format.Snappy, "SNAPPY"},
		{format.CompressionCodec(42), "CompressionCodec(42)"},
		{format.DictionaryPage, "DICTIONARY_PAGE"},
		{format.RLEDictionary, "RLE_DICTIONARY"},
	} {
		if got := test.value.String(); got != test.want {
			t.Errorf("want=%q got=%q", test.want, got)
		}
	}
}
