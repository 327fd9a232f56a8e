package zmqbridge

import (
	"fmt"

	"github.com/pebbe/zmq4"
)

// RegisterConfig describes one socket to register with a [Context].
//
// Exactly one of Socket or (SocketType + Configurator) must be supplied:
// either hand over an already-constructed [zmq4.Socket], or ask this package
// to build one and hand it to Configurator to bind/connect. At least one of
// In or Out must be non-nil. Context defaults to a lazily-initialized,
// package-level default context if nil (spec.md §9).
type RegisterConfig struct {
	// Context is the bridge to register against. Defaults to a
	// lazily-initialized global [Context] if nil.
	Context *Context

	// Socket is a pre-built, not-yet-bound-or-connected socket. Mutually
	// exclusive with SocketType/Configurator.
	Socket *zmq4.Socket

	// SocketType names the pattern to construct, when Socket is nil. Used
	// only in combination with Configurator.
	SocketType SocketType
	// Configurator is responsible for binding or connecting the
	// newly-constructed socket. Required, and only used, when Socket is nil.
	Configurator func(*zmq4.Socket) error

	// In carries payloads from the application to the wire.
	In <-chan Message
	// Out carries payloads from the wire to the application.
	Out chan<- Message
	// CtlIn carries Command closures to run against the socket.
	CtlIn <-chan Command
	// CtlOut carries non-nil Command results back to the application.
	CtlOut chan<- any
}

// Register is the only way to introduce a socket to a [Context] (spec.md
// §4.D): it validates cfg, optionally constructs and configures a socket,
// and places a registration request on the context's async control channel.
// The channel loop generates the socket's id and forwards the actual
// registration to the socket loop; Register itself never touches the
// socket's handle again once Configurator (or the caller) has run.
//
// Usage errors (mutually exclusive socket arguments, missing channels, an
// unknown socket type) are returned synchronously, before the context is
// touched.
func Register(cfg RegisterConfig) error {
	hasSocket := cfg.Socket != nil
	hasTypeConfig := cfg.Configurator != nil

	if hasSocket == hasTypeConfig {
		return usageErrorf("exactly one of Socket or (SocketType, Configurator) must be provided")
	}

	bundle := Bundle{In: cfg.In, Out: cfg.Out, CtlIn: cfg.CtlIn, CtlOut: cfg.CtlOut}
	if bundle.empty() {
		return usageErrorf("at least one of In or Out must be non-nil")
	}

	var zmqType zmq4.Type
	if cfg.Socket == nil {
		var ok bool
		zmqType, ok = cfg.SocketType.zmqType()
		if !ok {
			return usageErrorf("unknown socket type %v", cfg.SocketType)
		}
	}

	ctx := cfg.Context
	if ctx == nil {
		var err error
		ctx, err = defaultContext()
		if err != nil {
			return fmt.Errorf("zmqbridge: default context: %w", err)
		}
	} else if err := ctx.Initialize(); err != nil {
		return fmt.Errorf("zmqbridge: initialize context: %w", err)
	}

	sock := cfg.Socket
	if sock == nil {
		var err error
		sock, err = ctx.zctx.NewSocket(zmqType)
		if err != nil {
			return fmt.Errorf("zmqbridge: create socket: %w", err)
		}

		// Closing a context must not block on undelivered messages
		// (supplemented from the kusanagi-sdk-go teacher's bindSockets/start,
		// see SPEC_FULL.md §7); caller-supplied sockets are left untouched.
		if err := sock.SetLinger(0); err != nil {
			return fmt.Errorf("zmqbridge: set linger: %w", err)
		}

		if err := cfg.Configurator(sock); err != nil {
			_ = sock.Close()
			return fmt.Errorf("zmqbridge: configure socket: %w", err)
		}
	}

	if err := ctx.submit(registerEvent{sock: sock, bundle: bundle}); err != nil {
		if sock != cfg.Socket {
			_ = sock.Close()
		}
		return err
	}
	return nil
}
