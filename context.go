package zmqbridge

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pebbe/zmq4"
)

// Context is the process-scoped holder described in spec.md §3: a native
// ZeroMQ context, the control transport, and the two worker goroutines it
// owns. Construct one with [NewContext]; call [Context.Initialize] (or let
// [Register] do it implicitly) before registering any socket, and
// [Context.Shutdown] to tear the whole thing down.
type Context struct {
	name   string
	logger Logger

	zctx    *zmq4.Context
	control *controlTransport

	controlEvents chan controlEvent
	quit          chan struct{}
	sockDone      chan struct{}
	done          chan struct{}

	initOnce     sync.Once
	initErr      error
	shutdownOnce sync.Once
}

var contextCounter atomic.Uint64

// NewContext constructs a new [Context]. It does not start either worker
// goroutine; call [Context.Initialize] (or [Register], which initializes
// implicitly) to do that.
func NewContext(opts ...ContextOption) (*Context, error) {
	cfg := resolveContextConfig(opts)
	if cfg.name == "" {
		cfg.name = fmt.Sprintf("zmqbridge-%d", contextCounter.Add(1))
	}

	zctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("zmqbridge: create native context: %w", err)
	}

	addr := fmt.Sprintf("inproc://%s-control", cfg.name)
	control, err := newControlTransport(zctx, addr)
	if err != nil {
		_ = zctx.Term()
		return nil, err
	}

	return &Context{
		name:          cfg.name,
		logger:        cfg.logger,
		zctx:          zctx,
		control:       control,
		controlEvents: make(chan controlEvent),
		quit:          make(chan struct{}),
		sockDone:      make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// Initialize binds the control socket and starts both worker goroutines. It
// is idempotent: calling it more than once is a no-op after the first call
// succeeds. Binding the server end must happen before connecting the client
// end, since the transport is intra-process (spec.md §4.D).
func (c *Context) Initialize() error {
	c.initOnce.Do(func() {
		if err := c.control.bindServer(); err != nil {
			c.initErr = fmt.Errorf("zmqbridge: bind control socket: %w", err)
			return
		}

		sLoop := newSocketLoop(c.control, c.logger, c.name, c.controlEvents)
		go func() {
			// ZeroMQ sockets must be touched from one thread only (spec.md
			// §1); pin this goroutine for the lifetime of the loop.
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			defer close(c.sockDone)
			sLoop.run()
		}()

		if err := c.control.connectClient(); err != nil {
			c.initErr = fmt.Errorf("zmqbridge: connect control socket: %w", err)
			return
		}

		cLoop := newChannelLoop(c.control, c.logger, c.name, c.controlEvents, c.quit)
		go func() {
			defer close(c.done)
			cLoop.run()

			// The socket loop closes its own sockets (including the control
			// server end) as part of the shutdown tag; wait for it to finish
			// before tearing down the client end and the native context, so
			// neither goroutine touches a zmq4 handle the other still owns.
			<-c.sockDone
			if err := c.control.closeClient(); err != nil {
				c.logger.Error("close control client failed", err, map[string]any{"context": c.name})
			}
			if err := c.zctx.Term(); err != nil {
				c.logger.Error("terminate native context failed", err, map[string]any{"context": c.name})
			}
		}()
	})
	return c.initErr
}

// Shutdown tears the context down: every registered socket is closed, every
// bundle channel this package owns is closed, and both worker goroutines
// exit. It is equivalent to closing the context's async control channel
// (spec.md §6); concretely, that channel is modeled here as the quit signal,
// since a Go channel can only safely be closed by the goroutines that send
// on it, and both [Register] and the socket loop send on controlEvents (see
// DESIGN.md). Shutdown is safe to call more than once and safe to call
// before Initialize.
func (c *Context) Shutdown() {
	c.shutdownOnce.Do(func() {
		close(c.quit)
	})
}

// submit delivers evt to the channel loop, or reports [ErrShutdown] if the
// context's channel loop has already exited. controlEvents is unbuffered, so
// an accepted evt has been received by the channel loop, which handles it
// before it next selects. When a submit races a concurrent
// [Context.Shutdown], the channel loop's reflect.Select picks uniformly among
// the ready cases; if it picks quit, evt is never received and submit returns
// ErrShutdown once the context is done.
func (c *Context) submit(evt controlEvent) error {
	select {
	case c.controlEvents <- evt:
		return nil
	case <-c.done:
		return ErrShutdown
	}
}

// Done returns a channel that's closed once both worker goroutines have
// fully exited and the native ZeroMQ context has been terminated. Use in
// tests as a synchronization point rather than a fixed sleep.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

var (
	defaultContextOnce struct {
		sync.Once
		ctx *Context
		err error
	}
)

// defaultContext lazily constructs and initializes the package-level global
// context used by [Register] when its RegisterConfig.Context is nil
// (spec.md §9 "Global automagic context").
func defaultContext() (*Context, error) {
	defaultContextOnce.Do(func() {
		ctx, err := NewContext(WithName("zmqbridge-default"))
		if err != nil {
			defaultContextOnce.err = err
			return
		}
		if err := ctx.Initialize(); err != nil {
			defaultContextOnce.err = err
			return
		}
		defaultContextOnce.ctx = ctx
	})
	return defaultContextOnce.ctx, defaultContextOnce.err
}
