package transport

import (
	"errors"
	"fmt"
)

// OpError describes a failed connection-level operation (dial, listen, accept).
type OpError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *OpError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("transport %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// newOpError creates a new OpError
func newOpError(op, addr string, err error) *OpError {
	return &OpError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}

// IsConnectionError reports whether err originated from connection setup.
func IsConnectionError(err error) bool {
	var opErr *OpError
	return errors.As(err, &opErr)
}
