package zmqbridge

import "github.com/pebbe/zmq4"

// controlEvent is the closed tagged union flowing over the async control
// channel (spec.md §6 "Control-channel schema"): [:register sock bundle] |
// [:command sid result] | [sid payload]. It has exactly two producers, the
// [Register] function and the socket loop, and exactly one consumer, the
// channel loop.
type controlEvent interface {
	isControlEvent()
}

// registerEvent is produced by [Register]; it is not itself a registration
// (spec.md §4.C is explicit: "not a direct registration; it's a request").
// The channel loop generates the [SocketID] and forwards a registerRecord to
// the socket loop.
type registerEvent struct {
	sock   *zmq4.Socket
	bundle Bundle
}

// commandResultEvent is produced by the socket loop after a [Command]
// closure returns a non-nil result.
type commandResultEvent struct {
	sid    SocketID
	result any
}

// inboundEvent is produced by the socket loop for every wire message
// received on a non-control socket.
type inboundEvent struct {
	sid     SocketID
	payload Message
}

func (registerEvent) isControlEvent()      {}
func (commandResultEvent) isControlEvent() {}
func (inboundEvent) isControlEvent()       {}
