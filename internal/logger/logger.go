// Package logger provides a small levelled logger shared by the pricing
// library, the batch engine and the HTTP server.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetLevel(logger.Debug)
//	logger.Infof("evaluating %d quotes", n)
//	logger.Tracef("implied vol iter=%d sigma=%f", i, sigma)
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int32

const (
	Error Level = iota // Error logs failures that need attention.
	Info               // Info logs lifecycle events.
	Debug              // Debug logs per-quote diagnostics.
	Trace              // Trace logs every solver iterate.
)

func (l Level) String() string {
	switch l {
	case Error:
		return "error"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// ParseLevel accepts a level name or its numeric verbosity (0..3).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "0":
		return Error, nil
	case "", "info", "1":
		return Info, nil
	case "debug", "2":
		return Debug, nil
	case "trace", "3":
		return Trace, nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

// current holds the active level; pricing calls read it from many goroutines.
var current atomic.Int32

var std = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

func init() {
	current.Store(int32(Info))
}

// SetLevel sets the global verbosity. Typically called once at startup.
func SetLevel(l Level) {
	current.Store(int32(l))
}

// CurrentLevel returns the active verbosity.
func CurrentLevel() Level {
	return Level(current.Load())
}

// SetOutput redirects log output, e.g. to a buffer in tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Enabled reports whether messages at l are emitted.
func Enabled(l Level) bool {
	return CurrentLevel() >= l
}

func logf(l Level, prefix, format string, args ...any) {
	if Enabled(l) {
		// depth 3: logf -> Errorf/Infof/... -> caller
		_ = std.Output(3, prefix+fmt.Sprintf(format, args...))
	}
}

// Errorf logs an error-level message.
func Errorf(format string, args ...any) {
	logf(Error, "[ERROR] ", format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	logf(Info, "[INFO]  ", format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	logf(Debug, "[DEBUG] ", format, args...)
}

// Tracef logs very detailed execution traces.
func Tracef(format string, args ...any) {
	logf(Trace, "[TRACE] ", format, args...)
}
