package zmqbridge

import (
	"errors"
	"fmt"
)

// UsageError is returned synchronously by [Register] when the caller's
// arguments violate the contract documented on [RegisterConfig]. The
// context, if any, is left completely unaffected.
type UsageError struct {
	// Reason is a short, human-readable description of the violated rule.
	Reason string
}

func (e *UsageError) Error() string { return "zmqbridge: usage error: " + e.Reason }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}

// ProtocolViolationError indicates that the socket loop or channel loop
// observed a state that should be unreachable given correct use of this
// package's internal protocol (an unknown control tag, an inbound message
// for a bundle with no Out channel, or similar). It is always fatal: the
// goroutine that detects it panics with this error, since spec.md classifies
// protocol violations as programming bugs rather than recoverable runtime
// conditions.
type ProtocolViolationError struct {
	Detail string
}

func (e *ProtocolViolationError) Error() string {
	return "zmqbridge: protocol violation: " + e.Detail
}

func protocolViolation(format string, args ...any) {
	panic(&ProtocolViolationError{Detail: fmt.Sprintf(format, args...)})
}

// ErrShutdown is returned by operations attempted against a [Context] that
// has already been shut down.
var ErrShutdown = errors.New("zmqbridge: context is shut down")
