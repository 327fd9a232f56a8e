package zmqbridge

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logging interface used throughout this package.
// The default implementation is backed by [logiface] with the [stumpy] JSON
// encoder; callers may supply their own via [WithLogger] to integrate with
// zerolog, logrus, slog, or anything else logiface has an adapter for.
type Logger interface {
	// Warn logs a recoverable, expected condition: a dropped message, a
	// would-block send, or similar (spec.md error classes 2 and 4).
	Warn(msg string, fields map[string]any)
	// Error logs an unexpected but non-fatal condition: a panic recovered
	// from a user-supplied command closure (spec.md error class 3).
	Error(msg string, err error, fields map[string]any)
}

// logifaceLogger adapts a [logiface.Logger] backed by [stumpy.Event] to the
// [Logger] interface used internally.
type logifaceLogger struct {
	l *logiface.Logger[*stumpy.Event]
}

// NewDefaultLogger returns the package's default [Logger]: JSON lines on
// stderr, via [stumpy], the same backend used throughout the teacher repo's
// logiface family of adapters.
func NewDefaultLogger() Logger {
	return &logifaceLogger{l: stumpy.L.New(stumpy.L.WithStumpy())}
}

func (d *logifaceLogger) Warn(msg string, fields map[string]any) {
	if e := d.l.Warning(); e != nil {
		for k, v := range fields {
			e = e.Any(k, v)
		}
		e.Log(msg)
	}
}

func (d *logifaceLogger) Error(msg string, err error, fields map[string]any) {
	if e := d.l.Err(); e != nil {
		if err != nil {
			e = e.Err(err)
		}
		for k, v := range fields {
			e = e.Any(k, v)
		}
		e.Log(msg)
	}
}

// noopLogger discards everything. It backstops a nil [Logger] field so call
// sites never need a nil check.
type noopLogger struct{}

func (noopLogger) Warn(string, map[string]any)         {}
func (noopLogger) Error(string, error, map[string]any) {}

var defaultLoggerOnce struct {
	sync.Once
	logger Logger
}

func defaultLogger() Logger {
	defaultLoggerOnce.Do(func() {
		defaultLoggerOnce.logger = NewDefaultLogger()
	})
	return defaultLoggerOnce.logger
}
