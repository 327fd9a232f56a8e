package zmqbridge

import (
	"math/rand/v2"
	"syscall"

	"github.com/pebbe/zmq4"
)

// socketLoop is thread B from spec.md §4.B: it owns every registered socket,
// including the control PAIR server end, and is the only goroutine that ever
// touches a [zmq4.Socket] (I1) once it has been registered. It must run pinned
// to one OS thread via runtime.LockOSThread, so that every operation on a
// registered socket happens on that single thread.
type socketLoop struct {
	control *controlTransport
	logger  Logger
	name    string

	sockets map[SocketID]*zmq4.Socket
	ids     map[*zmq4.Socket]SocketID

	// toControl is the async control channel from spec.md §3/§4: this
	// goroutine writes [:command sid, result] and [sid, payload] events to
	// it; [Register] writes [:register sock, bundle] events to the same
	// channel; the channel loop is its sole reader.
	toControl chan<- controlEvent
}

func newSocketLoop(control *controlTransport, logger Logger, name string, toControl chan<- controlEvent) *socketLoop {
	return &socketLoop{
		control:   control,
		logger:    logger,
		name:      name,
		sockets:   map[SocketID]*zmq4.Socket{controlID: control.server},
		ids:       map[*zmq4.Socket]SocketID{control.server: controlID},
		toControl: toControl,
	}
}

// run is the socket loop's body (spec.md §4.B). It must be started on its
// own goroutine, with runtime.LockOSThread already called.
func (s *socketLoop) run() {
	defer close(s.toControl)

	for {
		ready, err := s.poll()
		if err != nil {
			s.logger.Error("socket loop poll failed", err, map[string]any{"context": s.name})
			continue
		}
		if len(ready) == 0 {
			continue
		}

		// uniform random tie-break among every ready socket (spec.md §4.B,
		// mirroring the channel selector's own nondeterminism).
		chosen := ready[rand.IntN(len(ready))]

		if chosen == controlID {
			if shutdown := s.handleControl(); shutdown {
				return
			}
			continue
		}

		s.handleInbound(chosen)
	}
}

// poll rebuilds the poller every iteration (spec.md §9 documents this as an
// explicit, deliberate choice carried over from the source rather than
// cached; see DESIGN.md for the tradeoff).
func (s *socketLoop) poll() ([]SocketID, error) {
	poller := zmq4.NewPoller()
	order := make([]SocketID, 0, len(s.sockets))
	for id, sock := range s.sockets {
		poller.Add(sock, zmq4.POLLIN)
		order = append(order, id)
	}

	polled, err := poller.Poll(-1)
	if err != nil {
		if zmq4.AsErrno(err) == zmq4.Errno(syscall.EINTR) {
			return nil, nil
		}
		return nil, err
	}

	ready := make([]SocketID, 0, len(polled))
	for _, p := range polled {
		if p.Events&zmq4.POLLIN == 0 {
			continue
		}
		for _, id := range order {
			if s.sockets[id] == p.Socket {
				ready = append(ready, id)
				break
			}
		}
	}
	return ready, nil
}

// handleControl processes one sentinel/shutdown wake-up. It returns
// shutdown=true once the loop should exit.
func (s *socketLoop) handleControl() (shutdown bool) {
	tag, err := s.control.recvTag()
	if err != nil {
		s.logger.Error("control socket recv failed", err, map[string]any{"context": s.name})
		return false
	}

	switch tag {
	case sentinelTag:
		s.handleRecord(s.control.queue.take())
		return false

	case shutdownTag:
		for id, sock := range s.sockets {
			if err := sock.Close(); err != nil {
				s.logger.Error("close socket on shutdown failed", err, map[string]any{"context": s.name, "socket": string(id)})
			}
		}
		return true

	default:
		protocolViolation("control socket received unknown tag %q", tag)
		return false
	}
}

// handleRecord dispatches one dequeued command (spec.md §4.B case 1).
func (s *socketLoop) handleRecord(rec record) {
	switch r := rec.(type) {
	case registerRecord:
		s.sockets[r.id] = r.sock
		s.ids[r.sock] = r.id

	case closeRecord:
		if sock, ok := s.sockets[r.id]; ok {
			if err := sock.Close(); err != nil {
				s.logger.Error("close socket failed", err, map[string]any{"context": s.name, "socket": string(r.id)})
			}
			delete(s.sockets, r.id)
			delete(s.ids, sock)
		}

	case commandRecord:
		sock, ok := s.sockets[r.id]
		if !ok {
			return // raced with a close; nothing to run against
		}
		s.runCommand(r.id, sock, r.fn)

	case outgoingRecord:
		sock, ok := s.sockets[r.id]
		if !ok {
			return
		}
		if err := sendMessage(sock, r.payload); err != nil {
			s.logger.Warn("send failed or would block", map[string]any{"context": s.name, "socket": string(r.id), "error": err.Error()})
		}

	default:
		protocolViolation("unknown queue record type %T", rec)
	}
}

// runCommand invokes fn against sock, recovering any panic (spec.md §7 class
// 3), and forwards a non-nil result to the channel loop.
func (s *socketLoop) runCommand(id SocketID, sock *zmq4.Socket, fn Command) {
	result, err := func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				if e, ok := r.(error); ok {
					err = e
				} else {
					err = &ProtocolViolationError{Detail: "command panic"}
				}
			}
		}()
		return fn(sock), nil
	}()

	if err != nil {
		s.logger.Error("command panicked", err, map[string]any{"context": s.name, "socket": string(id)})
		return
	}
	if result == nil {
		return
	}

	s.toControl <- commandResultEvent{sid: id, result: result}
}

// handleInbound receives every part of a ready socket's next message and
// forwards it to the channel loop (spec.md §4.B case 4).
func (s *socketLoop) handleInbound(id SocketID) {
	sock := s.sockets[id]
	parts, err := sock.RecvMessageBytes(0)
	if err != nil {
		s.logger.Error("recv failed", err, map[string]any{"context": s.name, "socket": string(id)})
		return
	}
	s.toControl <- inboundEvent{sid: id, payload: Message(parts)}
}

// sendMessage is "send!" from spec.md §4.B: a single-part payload is sent
// with DONTWAIT; a multipart payload sends every part but the last with
// DONTWAIT|SNDMORE, and the last with DONTWAIT alone. Any would-block drops
// the remainder rather than blocking the socket loop, trading delivery for
// liveness, as documented.
func sendMessage(sock *zmq4.Socket, payload Message) error {
	if len(payload) == 0 {
		return nil
	}
	for i, part := range payload {
		flags := zmq4.DONTWAIT
		if i < len(payload)-1 {
			flags |= zmq4.SNDMORE
		}
		if _, err := sock.SendBytes(part, flags); err != nil {
			return err
		}
	}
	return nil
}
