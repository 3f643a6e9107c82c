package dict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/segmentio/memo/format"
)

// Metrics holds the prometheus collectors updated by dictionary encoders.
// Multiple encoders may share the same Metrics value.
type Metrics struct {
	valuesTotal      prometheus.Counter
	nullsTotal       prometheus.Counter
	entriesTotal     prometheus.Counter
	dictionaryFull   prometheus.Counter
	pagesTotal       *prometheus.CounterVec
	pageBytesTotal   *prometheus.CounterVec
	pageUncompressed *prometheus.CounterVec
}

// NewMetrics constructs the encoder metrics and registers them with reg. A nil
// registerer creates collectors which are not exported anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	pageType := []string{"type"}
	return &Metrics{
		valuesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memo_dict_values_total",
			Help: "number of non-null values dictionary encoded",
		}),
		nullsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memo_dict_nulls_total",
			Help: "number of null values dictionary encoded",
		}),
		entriesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memo_dict_entries_total",
			Help: "number of distinct entries added to dictionaries",
		}),
		dictionaryFull: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "memo_dict_full_total",
			Help: "number of times a value was rejected because the dictionary reached its maximum size",
		}),
		pagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "memo_dict_pages_total",
			Help: "number of pages written",
		}, pageType),
		pageBytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "memo_dict_page_bytes_total",
			Help: "bytes written for pages, including headers",
		}, pageType),
		pageUncompressed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "memo_dict_page_uncompressed_bytes_total",
			Help: "size of page payloads before compression",
		}, pageType),
	}
}

func (m *Metrics) observeValues(n int) {
	if m != nil {
		m.valuesTotal.Add(float64(n))
	}
}

func (m *Metrics) observeNulls(n int) {
	if m != nil {
		m.nullsTotal.Add(float64(n))
	}
}

func (m *Metrics) observeEntry() {
	if m != nil {
		m.entriesTotal.Inc()
	}
}

func (m *Metrics) observeDictionaryFull() {
	if m != nil {
		m.dictionaryFull.Inc()
	}
}

func (m *Metrics) observePage(pageType format.PageType, size, uncompressedSize int) {
	if m != nil {
		label := pageType.String()
		m.pagesTotal.WithLabelValues(label).Inc()
		m.pageBytesTotal.WithLabelValues(label).Add(float64(size))
		m.pageUncompressed.WithLabelValues(label).Add(float64(uncompressedSize))
	}
}
