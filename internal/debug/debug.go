// Package debug carries the opt-in debug logger shared by the packages of this
// module. Logging is disabled unless Toggle(true) is called or the MEMODEBUG
// environment variable is set to a truthy value.
package debug

import (
	"io"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

var (
	enabled int32
	output  atomic.Value // log.Logger
)

func init() {
	if on, _ := strconv.ParseBool(os.Getenv("MEMODEBUG")); on {
		enabled = 1
	}
	SetOutput(os.Stderr)
}

// Toggle turns on/off debug mode
func Toggle(on bool) {
	val := int32(0)
	if on {
		val = 1
	}
	atomic.StoreInt32(&enabled, val)
}

// Enabled reports whether debug mode is on.
func Enabled() bool { return atomic.LoadInt32(&enabled) == 1 }

// SetOutput changes the writer that debug logs are sent to. Logs are
// formatted with logfmt.
func SetOutput(w io.Writer) {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	output.Store(logger)
}

// Logger returns the debug logger, or a nop logger when debug mode is off.
//
// The returned logger captures the state of the toggle at the time of the
// call; long-lived components should call Logger again rather than retain it
// if they need to observe later toggles.
func Logger() log.Logger {
	if !Enabled() {
		return log.NewNopLogger()
	}
	return output.Load().(log.Logger)
}

// Log writes keyvals at debug level if debug mode is enabled.
func Log(keyvals ...interface{}) {
	if !Enabled() {
		return
	}
	_ = level.Debug(output.Load().(log.Logger)).Log(keyvals...)
}

// Do executes a function if debug is enabled, usually for side effects.
func Do(f func()) {
	if !Enabled() {
		return
	}
	f()
}
