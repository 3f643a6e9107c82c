package memo

import (
	"fmt"
	"strings"

	"github.com/segmentio/memo/hashprobe"
	"github.com/segmentio/memo/memory"
)

// The Config type carries configuration options for memo tables.
//
// Config implements the Option interface so it can be used directly as
// argument to the table constructors when needed, for example:
//
//	table := memo.NewInt64Table(&memo.Config{
//		Capacity: 1 << 16,
//	})
type Config struct {
	// Number of distinct values that the table is expected to hold. The hash
	// table is sized so that this many values can be inserted without growing.
	Capacity int

	// Load factor beyond which the hash table grows, must be within (0, 1).
	MaxLoad float64

	// Source of the memory holding the hash table and arena chunks.
	Allocator memory.Allocator
}

// DefaultConfig returns a new Config value initialized with the default table
// configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxLoad:   hashprobe.DefaultMaxLoad,
		Allocator: memory.DefaultAllocator,
	}
}

// NewConfig constructs a new table configuration applying the options passed
// as arguments on top of the default configuration.
func NewConfig(options ...Option) (*Config, error) {
	config := DefaultConfig()
	config.Apply(options...)
	return config, config.Validate()
}

// Apply applies the given list of options to c.
func (c *Config) Apply(options ...Option) {
	for _, opt := range options {
		opt.ConfigureTable(c)
	}
}

// ConfigureTable applies configuration options from c to config.
func (c *Config) ConfigureTable(config *Config) {
	*config = Config{
		Capacity:  coalesceInt(c.Capacity, config.Capacity),
		MaxLoad:   coalesceFloat64(c.MaxLoad, config.MaxLoad),
		Allocator: coalesceAllocator(c.Allocator, config.Allocator),
	}
}

// Validate returns a non-nil error if the configuration of c is invalid.
func (c *Config) Validate() error {
	const baseName = "memo.(*Config)."
	return errorInvalidConfiguration(
		validateNonNegativeInt(baseName+"Capacity", c.Capacity),
		validateLoadFactor(baseName+"MaxLoad", c.MaxLoad),
		validateNotNil(baseName+"Allocator", c.Allocator),
	)
}

// Option is an interface implemented by types that carry configuration options
// for memo tables.
type Option interface {
	ConfigureTable(*Config)
}

// WithCapacity creates a configuration option which presizes tables to hold n
// distinct values without growing.
//
// By default, tables start with room for a few dozen values.
func WithCapacity(n int) Option {
	return option(func(config *Config) { config.Capacity = n })
}

// WithMaxLoad creates a configuration option which sets the load factor of the
// hash table, beyond which it doubles its capacity.
//
// Defaults to 0.75.
func WithMaxLoad(maxLoad float64) Option {
	return option(func(config *Config) { config.MaxLoad = maxLoad })
}

// WithAllocator creates a configuration option which sets the allocator that
// tables obtain memory from.
//
// Defaults to memory.DefaultAllocator.
func WithAllocator(alloc memory.Allocator) Option {
	return option(func(config *Config) { config.Allocator = alloc })
}

// WithMemoryLimit creates a configuration option which caps the amount of
// memory that a table may hold. Growing past the limit makes insertions fail
// with ErrAllocation.
//
// The limit wraps the allocator configured by the options that precede it.
func WithMemoryLimit(limit int64) Option {
	return option(func(config *Config) {
		config.Allocator = memory.NewLimitedAllocator(config.Allocator, limit)
	})
}

type option func(*Config)

func (opt option) ConfigureTable(config *Config) { opt(config) }

func newConfig(options []Option) *Config {
	config, err := NewConfig(options...)
	if err != nil {
		panic(err)
	}
	return config
}

func coalesceInt(i1, i2 int) int {
	if i1 != 0 {
		return i1
	}
	return i2
}

func coalesceFloat64(f1, f2 float64) float64 {
	if f1 != 0 {
		return f1
	}
	return f2
}

func coalesceAllocator(a1, a2 memory.Allocator) memory.Allocator {
	if a1 != nil {
		return a1
	}
	return a2
}

func validateNonNegativeInt(optionName string, optionValue int) error {
	if optionValue >= 0 {
		return nil
	}
	return errorInvalidOptionValue(optionName, optionValue)
}

func validateLoadFactor(optionName string, optionValue float64) error {
	if optionValue > 0 && optionValue < 1 {
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
	var err *invalidConfiguration

	for _, reason := range reasons {
		if reason != nil {
			if err == nil {
				err = new(invalidConfiguration)
			}
			err.reasons = append(err.reasons, reason)
		}
	}

	if err != nil {
		return err
	}

	return nil
}

type invalidConfiguration struct {
	reasons []error
}

func (err *invalidConfiguration) Error() string {
	errorMessage := new(strings.Builder)
	for _, reason := range err.reasons {
		errorMessage.WriteString(reason.Error())
		errorMessage.WriteString("\n")
	}
	errorString := errorMessage.String()
	if errorString != "" {
		errorString = errorString[:len(errorString)-1]
	}
	return errorString
}
