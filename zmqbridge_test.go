package zmqbridge

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/stretchr/testify/require"
)

var inprocCounter atomic.Uint64

func inprocAddr(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("inproc://zmqbridge-test-%d", inprocCounter.Add(1))
}

// newTestContext returns an initialized Context that shuts itself down, and
// waits for full teardown, at test cleanup.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := NewContext(WithName(t.Name()), WithLogger(noopLogger{}))
	require.NoError(t, err)
	require.NoError(t, ctx.Initialize())
	t.Cleanup(func() {
		ctx.Shutdown()
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("context did not shut down in time")
		}
	})
	return ctx
}

func registerPair(t *testing.T, ctx *Context, addr string, bind bool, bundle Bundle) {
	t.Helper()
	err := Register(RegisterConfig{
		Context:    ctx,
		SocketType: Pair,
		Configurator: func(s *zmq4.Socket) error {
			if bind {
				return s.Bind(addr)
			}
			return s.Connect(addr)
		},
		In:     bundle.In,
		Out:    bundle.Out,
		CtlIn:  bundle.CtlIn,
		CtlOut: bundle.CtlOut,
	})
	require.NoError(t, err)
}

func requireMessage(t *testing.T, ch <-chan Message, want Message) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

// TestEchoRoundTrip covers spec.md P1/scenario 1: a message sent on one
// bundle's In channel arrives on the other bundle's Out channel.
func TestEchoRoundTrip(t *testing.T) {
	ctx := newTestContext(t)
	addr := inprocAddr(t)

	aIn := make(chan Message, 1)
	aOut := make(chan Message, 1)
	registerPair(t, ctx, addr, true, Bundle{In: aIn, Out: aOut})

	bIn := make(chan Message, 1)
	bOut := make(chan Message, 1)
	registerPair(t, ctx, addr, false, Bundle{In: bIn, Out: bOut})

	want := Message{[]byte("hello")}
	bIn <- want
	requireMessage(t, aOut, want)

	reply := Message{[]byte("world")}
	aIn <- reply
	requireMessage(t, bOut, reply)
}

// TestMultipartFraming covers spec.md P1/scenario 2: a multipart payload is
// delivered with exactly the same number of parts, in order.
func TestMultipartFraming(t *testing.T) {
	ctx := newTestContext(t)
	addr := inprocAddr(t)

	aIn := make(chan Message, 1)
	registerPair(t, ctx, addr, true, Bundle{In: aIn, Out: make(chan Message, 1)})

	bOut := make(chan Message, 1)
	registerPair(t, ctx, addr, false, Bundle{In: make(chan Message, 1), Out: bOut})

	want := Message{[]byte("frame-1"), []byte("frame-2"), []byte("frame-3")}
	aIn <- want
	requireMessage(t, bOut, want)
}

// TestCommandExecution covers spec.md P8/scenario 3: a Command runs against
// the registered socket on the socket loop's goroutine, and a non-nil result
// is delivered on CtlOut.
func TestCommandExecution(t *testing.T) {
	ctx := newTestContext(t)
	addr := inprocAddr(t)

	registerPair(t, ctx, addr, true, Bundle{In: make(chan Message, 1), Out: make(chan Message, 1)})

	ctlIn := make(chan Command, 1)
	ctlOut := make(chan any, 1)
	registerPair(t, ctx, addr, false, Bundle{
		In:     make(chan Message, 1),
		Out:    make(chan Message, 1),
		CtlIn:  ctlIn,
		CtlOut: ctlOut,
	})

	ctlIn <- func(sock *zmq4.Socket) any {
		typ, err := sock.GetType()
		require.NoError(t, err)
		return typ
	}

	select {
	case got := <-ctlOut:
		require.Equal(t, zmq4.PAIR, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for command result")
	}
}

// TestCommandNilResultDeliversNothing covers spec.md §8 P8: a Command that
// returns nil never produces a CtlOut delivery.
func TestCommandNilResultDeliversNothing(t *testing.T) {
	ctx := newTestContext(t)
	addr := inprocAddr(t)

	registerPair(t, ctx, addr, true, Bundle{In: make(chan Message, 1), Out: make(chan Message, 1)})

	ctlIn := make(chan Command, 1)
	ctlOut := make(chan any, 1)
	registerPair(t, ctx, addr, false, Bundle{
		In:     make(chan Message, 1),
		Out:    make(chan Message, 1),
		CtlIn:  ctlIn,
		CtlOut: ctlOut,
	})

	done := make(chan struct{})
	ctlIn <- func(sock *zmq4.Socket) any {
		close(done)
		return nil
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("command never ran")
	}

	select {
	case got := <-ctlOut:
		t.Fatalf("expected no CtlOut delivery, got %v", got)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestOutDropsWhenFull covers spec.md scenario 4: a full Out channel drops
// the message rather than blocking the channel loop, and a second,
// unrelated bundle keeps making progress.
func TestOutDropsWhenFull(t *testing.T) {
	ctx := newTestContext(t)

	addrA := inprocAddr(t)
	aIn := make(chan Message, 4)
	registerPair(t, ctx, addrA, true, Bundle{In: aIn, Out: make(chan Message, 1)})
	bOutFull := make(chan Message) // unbuffered and never drained: always full
	registerPair(t, ctx, addrA, false, Bundle{In: make(chan Message, 1), Out: bOutFull})

	addrB := inprocAddr(t)
	cIn := make(chan Message, 1)
	registerPair(t, ctx, addrB, true, Bundle{In: cIn, Out: make(chan Message, 1)})
	dOut := make(chan Message, 1)
	registerPair(t, ctx, addrB, false, Bundle{In: make(chan Message, 1), Out: dOut})

	aIn <- Message{[]byte("dropped")}

	want := Message{[]byte("delivered")}
	cIn <- want
	requireMessage(t, dOut, want)
}

// TestShutdownClosesOutChannels covers spec.md P3/P4/scenario 5: Shutdown
// tears down every pairing, closing every Out/CtlOut channel this package
// owns.
func TestShutdownClosesOutChannels(t *testing.T) {
	ctx, err := NewContext(WithName(t.Name()), WithLogger(noopLogger{}))
	require.NoError(t, err)
	require.NoError(t, ctx.Initialize())

	addr := inprocAddr(t)
	out := make(chan Message, 1)
	ctlOut := make(chan any, 1)
	ctlIn := make(chan Command, 1)
	registerPair(t, ctx, addr, true, Bundle{In: make(chan Message, 1), Out: out, CtlIn: ctlIn, CtlOut: ctlOut})

	ctx.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context did not shut down in time")
	}

	_, ok := <-out
	require.False(t, ok, "Out channel should be closed")
	_, ok = <-ctlOut
	require.False(t, ok, "CtlOut channel should be closed")
}

// TestShutdownIdempotent covers spec.md's "safe to call more than once"
// requirement.
func TestShutdownIdempotent(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Shutdown()
	ctx.Shutdown()
}

// TestRegisterValidation covers spec.md §4.D's synchronous usage-error
// validation.
func TestRegisterValidation(t *testing.T) {
	ctx := newTestContext(t)

	t.Run("neither socket nor configurator", func(t *testing.T) {
		err := Register(RegisterConfig{Context: ctx, In: make(chan Message)})
		require.ErrorAs(t, err, new(*UsageError))
	})

	t.Run("both socket and configurator", func(t *testing.T) {
		sock, err := zmq4.NewSocket(zmq4.PAIR)
		require.NoError(t, err)
		defer sock.Close()

		err = Register(RegisterConfig{
			Context:      ctx,
			Socket:       sock,
			Configurator: func(*zmq4.Socket) error { return nil },
			In:           make(chan Message),
		})
		require.ErrorAs(t, err, new(*UsageError))
	})

	t.Run("neither in nor out", func(t *testing.T) {
		err := Register(RegisterConfig{
			Context:    ctx,
			SocketType: Pair,
			Configurator: func(s *zmq4.Socket) error {
				return s.Bind(inprocAddr(t))
			},
		})
		require.ErrorAs(t, err, new(*UsageError))
	})
}

// TestDefaultContextIsSingleton covers spec.md §9's "global automagic
// context": repeated nil-Context registrations share one lazily-built
// Context.
func TestDefaultContextIsSingleton(t *testing.T) {
	first, err := defaultContext()
	require.NoError(t, err)
	second, err := defaultContext()
	require.NoError(t, err)
	require.Same(t, first, second)
}
