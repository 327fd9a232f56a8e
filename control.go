package zmqbridge

import (
	"fmt"

	"github.com/pebbe/zmq4"
)

// Sentinel and shutdown are the only two legal payloads the control PAIR
// socket ever carries (spec.md §6). They exist purely to interrupt the
// socket loop's blocking Poll call; the actual command travels out of band,
// on the queue.
const (
	sentinelTag = "sentinel"
	shutdownTag = "shutdown"
)

// controlTransport is the pair of PAIR socket endpoints plus the bounded
// queue described in spec.md §4.A. server is owned by the socket loop;
// client is owned by the channel loop, the only caller of wake/wakeShutdown.
//
// Grounded on the inproc PAIR pattern demonstrated by the retrieved
// kusanagi-sdk-go server.go (pipeOutput/start): a dedicated PAIR pair, bound
// before any other goroutine connects to it, used solely to move control
// flow across a goroutine boundary that a poller can observe.
type controlTransport struct {
	addr   string
	server *zmq4.Socket // bound, polled by the socket loop
	client *zmq4.Socket // connected, written to by the channel loop
	queue  commandQueue
}

// newControlTransport creates the PAIR sockets (unbound/unconnected) and the
// queue. zctx constructs both sockets so they share one native context, as
// required for inproc transport.
func newControlTransport(zctx *zmq4.Context, addr string) (*controlTransport, error) {
	server, err := zctx.NewSocket(zmq4.PAIR)
	if err != nil {
		return nil, fmt.Errorf("zmqbridge: create control server socket: %w", err)
	}
	client, err := zctx.NewSocket(zmq4.PAIR)
	if err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("zmqbridge: create control client socket: %w", err)
	}
	return &controlTransport{
		addr:   addr,
		server: server,
		client: client,
		queue:  newCommandQueue(),
	}, nil
}

// bindServer binds the server (socket-loop) end. Must happen before
// connectClient, since the transport is intra-process (spec.md §4.D).
func (c *controlTransport) bindServer() error {
	return c.server.Bind(c.addr)
}

// connectClient connects the client (channel-loop) end.
func (c *controlTransport) connectClient() error {
	return c.client.Connect(c.addr)
}

// wake enqueues rec then sends the sentinel, satisfying I4: exactly one
// sentinel per enqueue. put may block on a full queue; that block is the
// system's only outbound backpressure point (spec.md I5).
func (c *controlTransport) wake(rec record) error {
	c.queue.put(rec)
	_, err := c.client.SendMessage(sentinelTag)
	return err
}

// wakeShutdown sends the shutdown tag directly, bypassing the queue: there is
// no payload to pair it with.
func (c *controlTransport) wakeShutdown() error {
	_, err := c.client.SendMessage(shutdownTag)
	return err
}

// recvTag reads one control-socket message and returns its tag. Per spec.md
// §6, the server only ever receives single-part "sentinel" or "shutdown"
// messages; anything else is a protocol violation.
func (c *controlTransport) recvTag() (string, error) {
	parts, err := c.server.RecvMessageBytes(0)
	if err != nil {
		return "", err
	}
	if len(parts) != 1 {
		protocolViolation("control socket received %d parts, want 1", len(parts))
	}
	return string(parts[0]), nil
}

func (c *controlTransport) closeServer() error { return c.server.Close() }
func (c *controlTransport) closeClient() error { return c.client.Close() }
