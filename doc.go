// Package zmqbridge bridges thread-confined ZeroMQ sockets to ordinary Go
// channels, so application code can send and receive multipart messages
// without ever touching a [zmq4.Socket] directly.
//
// # Architecture
//
// Every [Context] owns exactly two long-lived goroutines:
//
//   - the socket loop, which owns every registered [zmq4.Socket] and the
//     control PAIR socket, and blocks inside [zmq4.Poller.Poll];
//   - the channel loop, which owns the registration table (socket id to
//     [Bundle]) and blocks inside a [reflect.Select] over every bundle's
//     readable channels.
//
// The two goroutines communicate through a control transport: an
// intra-process PAIR socket used only to wake the socket loop, and a bounded
// queue carrying the actual command payloads (register/close/command/send).
// This split exists because the socket loop's poller cannot wait on a Go
// channel, and the channel loop's select cannot wait on a socket; each
// primitive can only be woken by the thing it natively understands.
//
// # Registration
//
// [Register] is the only way to introduce a socket. It either wraps a
// caller-constructed [zmq4.Socket] or builds one from a [SocketType] plus a
// configurator responsible for binding or connecting it, and associates it
// with a [Bundle] of channels. At least one of Bundle.In or Bundle.Out must
// be set; Bundle.CtlIn/Bundle.CtlOut are independent and optional.
//
// # Thread confinement
//
// Sockets never leave the socket loop's goroutine; channel endpoints never
// leave the channel loop's goroutine. Application code interacts exclusively
// through the channels in its [Bundle] and through [Register]/[Shutdown].
//
// # Usage
//
//	ctx, err := zmqbridge.NewContext()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Shutdown()
//
//	in := make(chan zmqbridge.Message)
//	out := make(chan zmqbridge.Message, 16)
//	err = zmqbridge.Register(zmqbridge.RegisterConfig{
//		Context:     ctx,
//		SocketType:  zmqbridge.Push,
//		Configurator: func(s *zmq4.Socket) error { return s.Connect("inproc://example") },
//		In:          in,
//		Out:         out,
//	})
package zmqbridge
