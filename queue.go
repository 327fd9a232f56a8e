package zmqbridge

import "github.com/pebbe/zmq4"

// queueCapacity is the bounded FIFO's capacity (spec.md §3). Its fullness is
// the system's sole intended backpressure point on outbound traffic
// (spec.md §5, I5): a producer on some bundle's In channel blocks, via the
// channel loop's wake call, once eight records are in flight to the socket
// loop.
const queueCapacity = 8

// record is the closed tagged union of command payloads flowing from the
// channel loop to the socket loop. It is the Go-idiomatic rewrite (spec.md
// §9 DESIGN NOTES) of the source's dynamically-dispatched tagged messages:
// a sealed interface with an exhaustive type switch at the one place
// (socketLoop.handleRecord) that consumes it.
type record interface {
	isRecord()
}

// registerRecord asks the socket loop to add sock to its table under id.
type registerRecord struct {
	id   SocketID
	sock *zmq4.Socket
}

// closeRecord asks the socket loop to close and forget the socket for id.
type closeRecord struct {
	id SocketID
}

// commandRecord asks the socket loop to run fn against the socket for id,
// forwarding any non-nil result back to the channel loop.
type commandRecord struct {
	id SocketID
	fn Command
}

// outgoingRecord asks the socket loop to send payload on the socket for id.
type outgoingRecord struct {
	id      SocketID
	payload Message
}

func (registerRecord) isRecord() {}
func (closeRecord) isRecord()    {}
func (commandRecord) isRecord()  {}
func (outgoingRecord) isRecord() {}

// commandQueue is the bounded FIFO queue carrying records from the channel
// loop to the socket loop (spec.md §4.A). A plain buffered channel already
// gives FIFO order, a blocking Put when full, and a blocking Take when
// empty; see DESIGN.md for why this is preferred to a hand-rolled ring
// buffer (the teacher repo reaches for a buffered channel in exactly this
// situation, e.g. go-catrate's internal ring buffer is reserved for
// higher-throughput rate tracking, not simple bounded command relay).
type commandQueue chan record

func newCommandQueue() commandQueue {
	return make(commandQueue, queueCapacity)
}

// put enqueues rec, blocking if the queue is full. It's always paired,
// by the caller, with exactly one sentinel sent over the control PAIR
// (spec.md I4).
func (q commandQueue) put(rec record) {
	q <- rec
}

// take dequeues the next record, blocking until one is available.
func (q commandQueue) take() record {
	return <-q
}
