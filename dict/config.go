package dict

import (
	"fmt"
	"strings"

	"github.com/go-kit/log"

	"github.com/segmentio/memo/compress"
	"github.com/segmentio/memo/compress/uncompressed"
	"github.com/segmentio/memo/internal/debug"
)

const (
	// DefaultMaxDictionarySize is the number of entries, including null, that
	// a dictionary may hold before encoders stop accepting new values.
	DefaultMaxDictionarySize = 1 << 16
)

// The EncoderConfig type carries configuration options for dictionary
// encoders.
//
// EncoderConfig implements the EncoderOption interface so it can be used
// directly as argument to NewEncoder when needed, for example:
//
//	encoder := dict.NewEncoder(table, plain.Int64, &dict.EncoderConfig{
//		MaxDictionarySize: 1024,
//	})
type EncoderConfig struct {
	Compression       compress.Codec
	MaxDictionarySize int
	Logger            log.Logger
	Metrics           *Metrics
}

// DefaultEncoderConfig returns a new EncoderConfig value initialized with the
// default encoder configuration.
func DefaultEncoderConfig() *EncoderConfig {
	return &EncoderConfig{
		Compression:       &uncompressed.Codec{},
		MaxDictionarySize: DefaultMaxDictionarySize,
		Logger:            debug.Logger(),
	}
}

// NewEncoderConfig constructs a new encoder configuration applying the options
// passed as arguments on top of the default configuration.
func NewEncoderConfig(options ...EncoderOption) (*EncoderConfig, error) {
	config := DefaultEncoderConfig()
	config.Apply(options...)
	return config, config.Validate()
}

// Apply applies the given list of options to c.
func (c *EncoderConfig) Apply(options ...EncoderOption) {
	for _, opt := range options {
		opt.ConfigureEncoder(c)
	}
}

// ConfigureEncoder applies configuration options from c to config.
func (c *EncoderConfig) ConfigureEncoder(config *EncoderConfig) {
	*config = EncoderConfig{
		Compression:       coalesceCompression(c.Compression, config.Compression),
		MaxDictionarySize: coalesceInt(c.MaxDictionarySize, config.MaxDictionarySize),
		Logger:            coalesceLogger(c.Logger, config.Logger),
		Metrics:           coalesceMetrics(c.Metrics, config.Metrics),
	}
}

// Validate returns a non-nil error if the configuration of c is invalid.
func (c *EncoderConfig) Validate() error {
	const baseName = "dict.(*EncoderConfig)."
	return errorInvalidConfiguration(
		validateNotNil(baseName+"Compression", c.Compression),
		validatePositiveInt(baseName+"MaxDictionarySize", c.MaxDictionarySize),
		validateNotNil(baseName+"Logger", c.Logger),
	)
}

// EncoderOption is an interface implemented by types that carry configuration
// options for dictionary encoders.
type EncoderOption interface {
	ConfigureEncoder(*EncoderConfig)
}

// WithCompression creates a configuration option which sets the codec used to
// compress page payloads.
//
// Defaults to no compression.
func WithCompression(codec compress.Codec) EncoderOption {
	return encoderOption(func(config *EncoderConfig) { config.Compression = codec })
}

// WithMaxDictionarySize creates a configuration option which limits the number
// of entries in the dictionary. Encoding a value that is not in a dictionary
// which reached this size fails with ErrDictionaryFull.
//
// Defaults to DefaultMaxDictionarySize.
func WithMaxDictionarySize(size int) EncoderOption {
	return encoderOption(func(config *EncoderConfig) { config.MaxDictionarySize = size })
}

// WithLogger creates a configuration option which sets the logger that page
// flushes and dictionary overflows are reported to, at debug level.
//
// Defaults to the logger of the MEMODEBUG toggle.
func WithLogger(logger log.Logger) EncoderOption {
	return encoderOption(func(config *EncoderConfig) { config.Logger = logger })
}

// WithMetrics creates a configuration option which sets the metrics updated by
// the encoder.
func WithMetrics(metrics *Metrics) EncoderOption {
	return encoderOption(func(config *EncoderConfig) { config.Metrics = metrics })
}

type encoderOption func(*EncoderConfig)

func (opt encoderOption) ConfigureEncoder(config *EncoderConfig) { opt(config) }

func coalesceInt(i1, i2 int) int {
	if i1 != 0 {
		return i1
	}
	return i2
}

func coalesceCompression(c1, c2 compress.Codec) compress.Codec {
	if c1 != nil {
		return c1
	}
	return c2
}

func coalesceLogger(l1, l2 log.Logger) log.Logger {
	if l1 != nil {
		return l1
	}
	return l2
}

func coalesceMetrics(m1, m2 *Metrics) *Metrics {
	if m1 != nil {
		return m1
	}
	return m2
}

func validatePositiveInt(optionName string, optionValue int) error {
	if optionValue > 0 {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func validateNotNil(optionName string, optionValue interface{}) error {
	if optionValue != nil {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func errorInvalidOptionValue(optionName string, optionValue interface{}) error {
	return fmt.Errorf("invalid option value: %s: %v", optionName, optionValue)
}

func errorInvalidConfiguration(reasons ...error) error {
	var messages []string

	for _, reason := range reasons {
		if reason != nil {
			messages = append(messages, reason.Error())
		}
	}

	if len(messages) == 0 {
		return nil
	}
	return fmt.Errorf("invalid dictionary encoder configuration:\n%s", strings.Join(messages, "\n"))
}
