package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Dial connects to addr over TCP. The context bounds the connection attempt
// only; once established the connection carries no deadline.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	logrus.WithFields(logrus.Fields{
		"function": "Dial",
		"address":  addr,
	}).Info("Connecting to peer")

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Dial",
			"address":  addr,
			"error":    err.Error(),
		}).Error("Failed to connect to peer")
		return nil, newOpError("dial", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Dial",
		"local_addr":  conn.LocalAddr().String(),
		"remote_addr": conn.RemoteAddr().String(),
	}).Info("Connected to peer")

	return conn, nil
}

// Listener accepts TCP connections for single-transfer sessions.
type Listener struct {
	ln        net.Listener
	addr      net.Addr
	closeOnce sync.Once
	closeErr  error
}

// Listen starts listening for TCP connections on addr. Use port 0 to let the
// system pick a free port; Addr reports the bound address.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Listen",
			"address":  addr,
			"error":    err.Error(),
		}).Error("Failed to bind listener")
		return nil, newOpError("listen", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Listen",
		"address":  ln.Addr().String(),
	}).Info("Listening for peer")

	return &Listener{ln: ln, addr: ln.Addr()}, nil
}

// Addr returns the address the listener is bound to.
func (l *Listener) Addr() net.Addr {
	return l.addr
}

// Accept waits for the next connection. If ctx ends first the listener is
// closed and the context error is returned wrapped in an *OpError.
func (l *Listener) Accept(ctx context.Context) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() {
		l.Close()
	})
	defer stop()

	conn, err := l.ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		logrus.WithFields(logrus.Fields{
			"function": "Accept",
			"address":  l.addr.String(),
			"error":    err.Error(),
		}).Error("Failed to accept peer connection")
		return nil, newOpError("accept", l.addr.String(), err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Accept",
		"local_addr":  conn.LocalAddr().String(),
		"remote_addr": conn.RemoteAddr().String(),
	}).Info("Accepted peer connection")

	return conn, nil
}

// Close stops the listener. It is safe to call more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.ln.Close()
		if errors.Is(l.closeErr, net.ErrClosed) {
			l.closeErr = nil
		}
	})
	return l.closeErr
}
