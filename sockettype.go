package zmqbridge

import "github.com/pebbe/zmq4"

// SocketType names the socket pattern to construct when [Register] is given
// a SocketType instead of a pre-built socket. The set matches spec.md §6
// exactly: pair, pub, sub, req, rep, xreq, xrep, dealer, router, xpub, xsub,
// pull, push. Xreq and Dealer are the same zmq4.DEALER type, as are Xrep and
// Router (zmq4.ROUTER); both spellings are accepted for compatibility with
// call sites ported from libraries that use the older names.
type SocketType int

const (
	Pair SocketType = iota
	Pub
	Sub
	Req
	Rep
	Xreq
	Xrep
	Dealer
	Router
	Xpub
	Xsub
	Pull
	Push
)

// zmqType is unexported: application code never needs zmq4 types directly,
// per spec.md's "out of scope" treatment of the native messaging library as
// a black box.
func (t SocketType) zmqType() (zmq4.Type, bool) {
	switch t {
	case Pair:
		return zmq4.PAIR, true
	case Pub:
		return zmq4.PUB, true
	case Sub:
		return zmq4.SUB, true
	case Req:
		return zmq4.REQ, true
	case Rep:
		return zmq4.REP, true
	case Xreq:
		return zmq4.XREQ, true
	case Xrep:
		return zmq4.XREP, true
	case Dealer:
		return zmq4.DEALER, true
	case Router:
		return zmq4.ROUTER, true
	case Xpub:
		return zmq4.XPUB, true
	case Xsub:
		return zmq4.XSUB, true
	case Pull:
		return zmq4.PULL, true
	case Push:
		return zmq4.PUSH, true
	default:
		return 0, false
	}
}

func (t SocketType) String() string {
	switch t {
	case Pair:
		return "pair"
	case Pub:
		return "pub"
	case Sub:
		return "sub"
	case Req:
		return "req"
	case Rep:
		return "rep"
	case Xreq:
		return "xreq"
	case Xrep:
		return "xrep"
	case Dealer:
		return "dealer"
	case Router:
		return "router"
	case Xpub:
		return "xpub"
	case Xsub:
		return "xsub"
	case Pull:
		return "pull"
	case Push:
		return "push"
	default:
		return "unknown"
	}
}
