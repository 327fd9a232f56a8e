package zmqbridge

import "github.com/pebbe/zmq4"

// Command is a unary closure, submitted on a [Bundle]'s CtlIn channel, run on
// the socket loop's goroutine against the registered socket. Its return
// value, if non-nil, is delivered on CtlOut; a nil return value delivers
// nothing (spec.md §8 P8). A panic inside Command is recovered, logged, and
// otherwise discarded: the caller is never notified (spec.md §9 Open
// Questions documents this as the preserved, if arguably surprising,
// upstream behavior).
type Command func(socket *zmq4.Socket) (result any)

// Bundle is the set of channels associated with one registered socket. At
// least one of In or Out must be non-nil; CtlIn and CtlOut are independent
// options. When the bundle's pairing is torn down (spec.md §4.C.1), by the
// application closing In or CtlIn or by a full [Context] Shutdown, Out and
// CtlOut are closed exactly once. In and CtlIn are never closed by this
// package; they belong to the application, which sends on them.
type Bundle struct {
	// In carries payloads from the application to the wire.
	In <-chan Message
	// Out carries payloads from the wire to the application. Must never
	// block: offers to it are non-blocking, and a full Out channel results
	// in the message being dropped (logged as a warning).
	Out chan<- Message
	// CtlIn carries Command closures to run against the socket, on the
	// socket loop's goroutine.
	CtlIn <-chan Command
	// CtlOut carries non-nil Command results back to the application.
	// Offers to it are non-blocking, identical in spirit to Out.
	CtlOut chan<- any
}

// empty reports whether the bundle has neither In nor Out set, which
// [Register] rejects (spec.md §8 P5).
func (b Bundle) empty() bool {
	return b.In == nil && b.Out == nil
}
