// Package transport establishes the single TCP connection a chunksend session
// runs over.
//
// # Roles
//
// The sending side listens and accepts exactly one peer; the receiving side
// dials:
//
//	// Sender
//	l, err := transport.Listen("127.0.0.1:3000")
//	defer l.Close()
//	conn, err := l.Accept(ctx)
//
//	// Receiver
//	conn, err := transport.Dial(ctx, "127.0.0.1:3000")
//
// Listen with port 0 lets the system pick a port; Addr reports it.
//
// # Timeouts
//
// Contexts bound connection setup only. The returned net.Conn has no read or
// write deadline; a stalled peer blocks its counterpart until the connection
// is closed.
//
// # Errors
//
// Every failure is returned as *OpError naming the operation and address.
// Nothing is retried.
package transport
