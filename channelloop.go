package zmqbridge

import (
	"reflect"
	"strconv"
	"sync/atomic"
)

// pairing is one entry of the registration table owned by the channel loop
// (spec.md §3, §4.C). Only this goroutine ever reads from In/CtlIn or
// writes/closes Out/CtlOut; I2 is enforced by construction.
type pairing struct {
	bundle Bundle
}

// channelLoop is thread C from spec.md §4.C: it owns the registration table
// and is the only goroutine that ever touches a bundle's channels.
type channelLoop struct {
	control *controlTransport
	logger  Logger
	name    string

	controlEvents <-chan controlEvent
	quit          <-chan struct{}

	table  map[SocketID]*pairing
	nextID atomic.Uint64
}

func newChannelLoop(control *controlTransport, logger Logger, name string, controlEvents <-chan controlEvent, quit <-chan struct{}) *channelLoop {
	return &channelLoop{
		control:       control,
		logger:        logger,
		name:          name,
		controlEvents: controlEvents,
		quit:          quit,
		table:         make(map[SocketID]*pairing),
	}
}

// selectCase tags a reflect.Select case back to the table entry and channel
// it came from, since the case list is rebuilt fresh every iteration
// (mirroring the socket loop's fresh poller every iteration, spec.md §9).
type selectCase struct {
	sid SocketID
	// in is true for an In-channel case, false for a CtlIn-channel case.
	// Meaningless for the two fixed cases (control, quit).
	in bool
}

const (
	caseControl = iota
	caseQuit
	caseDynamicBase
)

// run is the channel loop's body (spec.md §4.C).
func (c *channelLoop) run() {
	for {
		cases := make([]reflect.SelectCase, caseDynamicBase, caseDynamicBase+len(c.table)*2)
		cases[caseControl] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.controlEvents)}
		cases[caseQuit] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.quit)}

		tags := make([]selectCase, caseDynamicBase, caseDynamicBase+len(c.table)*2)

		for sid, p := range c.table {
			if p.bundle.In != nil {
				cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(p.bundle.In)})
				tags = append(tags, selectCase{sid: sid, in: true})
			}
			if p.bundle.CtlIn != nil {
				cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(p.bundle.CtlIn)})
				tags = append(tags, selectCase{sid: sid, in: false})
			}
		}

		chosen, value, ok := reflect.Select(cases)

		switch chosen {
		case caseControl:
			c.handleControlEvent(value.Interface().(controlEvent))

		case caseQuit:
			c.handleShutdown()
			return

		default:
			tag := tags[chosen]
			if !ok {
				// one of the bundle's read-side endpoints was closed.
				c.closePairing(tag.sid)
				continue
			}
			if tag.in {
				c.handleOutgoing(tag.sid, value.Interface().(Message))
			} else {
				c.handleCommand(tag.sid, value.Interface().(Command))
			}
		}
	}
}

// handleControlEvent dispatches one value from the async control channel
// (spec.md §4.C cases for (:control, ...)).
func (c *channelLoop) handleControlEvent(evt controlEvent) {
	switch e := evt.(type) {
	case registerEvent:
		sid := c.nextSocketID()
		c.table[sid] = &pairing{bundle: e.bundle}
		if err := c.control.wake(registerRecord{id: sid, sock: e.sock}); err != nil {
			c.logger.Error("wake register failed", err, map[string]any{"context": c.name, "socket": string(sid)})
		}

	case commandResultEvent:
		p, ok := c.table[e.sid]
		if !ok || p.bundle.CtlOut == nil {
			return
		}
		c.offer(p.bundle.CtlOut, e.result, e.sid, "ctl-out")

	case inboundEvent:
		p, ok := c.table[e.sid]
		if !ok {
			return
		}
		if p.bundle.Out == nil {
			protocolViolation("inbound message for socket %q with no Out channel", e.sid)
		}
		c.offer(p.bundle.Out, e.payload, e.sid, "out")

	default:
		protocolViolation("unknown control event type %T", evt)
	}
}

// offer performs the non-blocking send documented on Bundle.Out/Bundle.CtlOut:
// on failure it logs a dropped-message warning rather than blocking the
// channel loop (spec.md §4.C, §5).
func (c *channelLoop) offer(ch any, value any, sid SocketID, which string) {
	switch dst := ch.(type) {
	case chan<- Message:
		select {
		case dst <- value.(Message):
		default:
			c.logger.Warn("message dropped: channel full", map[string]any{"context": c.name, "socket": string(sid), "channel": which})
		}
	case chan<- any:
		select {
		case dst <- value:
		default:
			c.logger.Warn("message dropped: channel full", map[string]any{"context": c.name, "socket": string(sid), "channel": which})
		}
	default:
		protocolViolation("offer: unsupported channel type %T", ch)
	}
}

// handleOutgoing is the (sid, msg) case where msg came from a bundle's In
// channel (spec.md §4.C).
func (c *channelLoop) handleOutgoing(sid SocketID, msg Message) {
	if err := c.control.wake(outgoingRecord{id: sid, payload: msg}); err != nil {
		c.logger.Error("wake outgoing failed", err, map[string]any{"context": c.name, "socket": string(sid)})
	}
}

// handleCommand is the (sid, msg) case where msg came from a bundle's CtlIn
// channel (spec.md §4.C).
func (c *channelLoop) handleCommand(sid SocketID, cmd Command) {
	if err := c.control.wake(commandRecord{id: sid, fn: cmd}); err != nil {
		c.logger.Error("wake command failed", err, map[string]any{"context": c.name, "socket": string(sid)})
	}
}

// closePairing is spec.md §4.C.1: wake a Close, then close every channel the
// channel loop owns for writing. Bundle.In and Bundle.CtlIn are the
// application's own channels (receive-only from this package's point of
// view, enforced by the Go type system); the bridge cannot and does not
// close them, since only a channel's sender may safely close it. See
// DESIGN.md for why this is the correct Go-idiomatic narrowing of the
// source's "close everything" shutdown behavior.
func (c *channelLoop) closePairing(sid SocketID) {
	p, ok := c.table[sid]
	if !ok {
		return
	}
	delete(c.table, sid)

	if err := c.control.wake(closeRecord{id: sid}); err != nil {
		c.logger.Error("wake close failed", err, map[string]any{"context": c.name, "socket": string(sid)})
	}

	if p.bundle.Out != nil {
		close(p.bundle.Out)
	}
	if p.bundle.CtlOut != nil {
		close(p.bundle.CtlOut)
	}
}

// handleShutdown is the (:control, nil) case: tear down every pairing, then
// wake the socket loop's shutdown path (spec.md §4.C).
func (c *channelLoop) handleShutdown() {
	for sid := range c.table {
		c.closePairing(sid)
	}
	if err := c.control.wakeShutdown(); err != nil {
		c.logger.Error("wake shutdown failed", err, map[string]any{"context": c.name})
	}
}

func (c *channelLoop) nextSocketID() SocketID {
	n := c.nextID.Add(1)
	return SocketID("zmq-" + strconv.FormatUint(n, 10))
}
